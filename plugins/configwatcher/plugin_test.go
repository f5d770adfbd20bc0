package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/pubsink/pkg/log"
	"github.com/bft-labs/pubsink/pkg/pubsink"
)

// recordingReloader captures every applied configuration.
type recordingReloader struct {
	mu      sync.Mutex
	configs []pubsink.Config
	err     error
}

func (r *recordingReloader) Reload(cfg pubsink.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.configs = append(r.configs, cfg)
	return nil
}

func (r *recordingReloader) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

func (r *recordingReloader) Last() pubsink.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configs[len(r.configs)-1]
}

// topicLoader reads the topic name straight from the file.
func topicLoader(path string) LoadFunc {
	return func() (pubsink.Config, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return pubsink.Config{}, err
		}
		topic := strings.TrimSpace(string(data))
		if topic == "" {
			return pubsink.Config{}, errors.New("empty topic")
		}
		return pubsink.Config{Project: "proj", Topic: topic}, nil
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startPlugin(t *testing.T, path string, delay time.Duration, reloader pubsink.Reloader) {
	t.Helper()
	plugin := New(Config{
		Path:          path,
		Load:          topicLoader(path),
		DebounceDelay: delay,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	err := plugin.Initialize(ctx, pubsink.PluginConfig{
		Logger:   log.NewNoopLogger(),
		Reloader: reloader,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = plugin.Shutdown(context.Background()) })
}

func TestPlugin_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("logs"), 0644); err != nil {
		t.Fatal(err)
	}

	reloader := &recordingReloader{}
	startPlugin(t, path, 10*time.Millisecond, reloader)

	if err := os.WriteFile(path, []byte("logs-v2"), 0644); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, func() bool { return reloader.Count() > 0 })

	if got := reloader.Last().Topic; got != "logs-v2" {
		t.Errorf("reloaded topic = %q, want logs-v2", got)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("logs"), 0644); err != nil {
		t.Fatal(err)
	}

	reloader := &recordingReloader{}
	startPlugin(t, path, 10*time.Millisecond, reloader)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if reloader.Count() != 0 {
		t.Errorf("reloads = %d, want 0", reloader.Count())
	}
}

func TestPlugin_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("logs"), 0644); err != nil {
		t.Fatal(err)
	}

	reloader := &recordingReloader{}
	startPlugin(t, path, 100*time.Millisecond, reloader)

	for _, topic := range []string{"a", "b", "c"} {
		if err := os.WriteFile(path, []byte(topic), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitUntil(t, func() bool { return reloader.Count() > 0 })
	time.Sleep(150 * time.Millisecond)

	if reloader.Count() != 1 {
		t.Errorf("reloads = %d, want 1", reloader.Count())
	}
	if got := reloader.Last().Topic; got != "c" {
		t.Errorf("reloaded topic = %q, want c", got)
	}
}

func TestPlugin_LoadFailureKeepsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("logs"), 0644); err != nil {
		t.Fatal(err)
	}

	reloader := &recordingReloader{}
	startPlugin(t, path, 10*time.Millisecond, reloader)

	if err := os.WriteFile(path, []byte("   "), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if reloader.Count() != 0 {
		t.Errorf("reloads = %d, want 0 after a failed load", reloader.Count())
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(Config{}).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q, want configwatcher", got)
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	plugin := New(Config{})
	err := plugin.Initialize(context.Background(), pubsink.PluginConfig{
		Logger:   log.NewNoopLogger(),
		Reloader: &recordingReloader{},
	})
	if err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(Config{
		Path: filepath.Join(t.TempDir(), "absent", "config.toml"),
		Load: func() (pubsink.Config, error) { return pubsink.Config{}, nil },
	})
	err := plugin.Initialize(context.Background(), pubsink.PluginConfig{
		Logger:   log.NewNoopLogger(),
		Reloader: &recordingReloader{},
	})
	if err == nil {
		t.Error("Initialize() should fail when the directory does not exist")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Path: "/etc/pubsink/../pubsink/config.toml"})
	if p.debounceDelay != DefaultDebounceDelay {
		t.Errorf("debounceDelay = %v, want %v", p.debounceDelay, DefaultDebounceDelay)
	}
	if p.path != "/etc/pubsink/config.toml" {
		t.Errorf("path = %q, want cleaned path", p.path)
	}
}
