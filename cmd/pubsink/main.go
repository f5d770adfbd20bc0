package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bft-labs/pubsink/internal/adapters/source"
	"github.com/bft-labs/pubsink/internal/cliconfig"
	"github.com/bft-labs/pubsink/pkg/log"
	"github.com/bft-labs/pubsink/pkg/pubsink"
	"github.com/bft-labs/pubsink/plugins/configwatcher"
)

const helpDescription = `
Ship log lines to a Google Cloud Pub/Sub topic.

Highlights:
  - Packs lines into publish requests that stay under the 1MB request limit,
    or joins them into newline-separated messages with --concat.
  - Publishes concurrently, retries transient failures and sends what still
    fails to an optional dead-letter topic.
  - Tails a file (rotation-safe) or reads stdin; configure via file, env, or flags.
  - Reloads attributes, limits and routing when the config file changes (--watch).
`

var exampleUsage = strings.TrimSpace(`
  pubsink --project my-project --topic app-logs --file /var/log/app.log
  tail -F app.log | pubsink --project my-project --topic app-logs --attributes "env:prod;app:api"
  pubsink --config $HOME/.pubsink/config.yaml --once --file backlog.log --from-start
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "pubsink",
		Short:         "Ship log lines to a Google Cloud Pub/Sub topic",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// Defaults plus flags; file and env layers are applied on top of
			// this snapshot on every (re)load.
			base := cfg
			loaded, err := cliconfig.Load(base, cfgFile, changed)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := log.NewZerolog(os.Stderr, loaded.LogFormat, loaded.LogLevel)
			logger.Info("configuration",
				log.String("config_file", cfgFile),
				log.Any("config", loaded),
			)

			reload := func() (pubsink.Config, error) {
				c, err := cliconfig.Load(base, cfgFile, changed)
				if err != nil {
					return pubsink.Config{}, err
				}
				return libConfig(c), nil
			}
			return run(loaded, cfgFile, reload, logger)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.pubsink/config.toml)")

	f.StringVar(&cfg.File, "file", cfg.File, "log file to tail (default: read stdin)")
	f.BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading as the file grows and across rotation")
	f.BoolVar(&cfg.FromStart, "from-start", cfg.FromStart, "read the file from the beginning instead of its end")
	f.BoolVar(&cfg.Poll, "poll-files", cfg.Poll, "watch the file by polling instead of inotify")
	f.StringVar(&cfg.Layout, "layout", cfg.Layout, `message layout: "json" or a text layout with ${time}, ${level}, ${logger}, ${message}, ${field:name}`)
	f.BoolVar(&cfg.Once, "once", cfg.Once, "ship what is available and exit")

	f.IntVar(&cfg.MaxEvents, "max-events", cfg.MaxEvents, "flush after this many buffered lines")
	f.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "longest a line waits in the buffer")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "poll interval when idle")

	f.IntVar(&cfg.MaxBytesPerRequest, "max-bytes", cfg.MaxBytesPerRequest, "maximum bytes per publish request")
	f.IntVar(&cfg.MaxMessagesPerRequest, "max-messages", cfg.MaxMessagesPerRequest, "messages per request, or lines per message with --concat")
	f.BoolVar(&cfg.ConcatMessages, "concat", cfg.ConcatMessages, "join lines into newline-separated messages")
	f.StringVar(&cfg.Attributes, "attributes", cfg.Attributes, `message attributes as "key1:value1;key2:value2"`)

	f.StringVar(&cfg.Project, "project", cfg.Project, "Google Cloud project of the topic")
	f.StringVar(&cfg.Topic, "topic", cfg.Topic, "Pub/Sub topic")
	f.StringVar(&cfg.DeadLetterProject, "dead-letter-project", cfg.DeadLetterProject, "project of the dead-letter topic (default: --project)")
	f.StringVar(&cfg.DeadLetterTopic, "dead-letter-topic", cfg.DeadLetterTopic, "topic receiving batches that exhausted their attempts")

	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "deadline of each publish call")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "publish attempts per batch before dead-lettering")
	f.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "initial delay between retries")
	f.IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "concurrent publish calls (0: unbounded)")
	f.Float64Var(&cfg.PublishRate, "publish-rate", cfg.PublishRate, "publish calls per second (0: unlimited)")
	f.StringVar(&cfg.CredentialsDir, "credentials-dir", cfg.CredentialsDir, "directory of the service account key (default: working directory)")
	f.StringVar(&cfg.CredentialsFile, "credentials-file", cfg.CredentialsFile, "service account key file (default: application default credentials)")
	f.StringVar(&cfg.EmulatorHost, "emulator-host", cfg.EmulatorHost, "host:port of a Pub/Sub emulator")
	if err := f.MarkHidden("emulator-host"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload when the config file changes")

	if err := root.Execute(); err != nil {
		log.NewZerolog(os.Stderr, log.FormatConsole, "error").Error("pubsink", log.Err(err))
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config, cfgFile string, reload configwatcher.LoadFunc, logger log.Logger) error {
	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	opts := []pubsink.Option{
		pubsink.WithLogger(logger),
		pubsink.WithSource(src),
		pubsink.WithClientOptions(clientOptions(cfg)...),
	}
	if cfg.Watch && cliconfig.FileExists(cfgFile) {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path: cfgFile,
			Load: reload,
		}))
	}

	s, err := pubsink.New(libConfig(cfg), opts...)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("create sink: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start sink: %w", err)
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("systemd notify failed", log.Err(err))
	}

	for running := true; running; {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reloadOnSignal(s, reload, logger)
				continue
			}
			logger.Info("received signal, stopping", log.String("signal", sig.String()))
			running = false
		case <-s.Done():
			if s.Status() == pubsink.StateCrashed {
				logger.Error("read loop crashed")
			}
			running = false
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := s.Stop(); err != nil {
		return fmt.Errorf("stop sink: %w", err)
	}
	return nil
}

func reloadOnSignal(s *pubsink.Sink, reload configwatcher.LoadFunc, logger log.Logger) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReloading)
	defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyReady) }()

	cfg, err := reload()
	if err != nil {
		logger.Error("config reload failed", log.Err(err))
		return
	}
	if err := s.Reload(cfg); err != nil {
		logger.Error("config reload rejected", log.Err(err))
	}
}

func newSource(cfg cliconfig.Config) (pubsink.EventSource, error) {
	if cfg.File == "" || cfg.File == "-" {
		return source.NewReaderSource(os.Stdin, "stdin", source.DefaultIdleWait), nil
	}
	return source.NewTailSource(source.TailConfig{
		Path:      cfg.File,
		Follow:    cfg.Follow && !cfg.Once,
		FromStart: cfg.FromStart,
		Poll:      cfg.Poll,
	})
}

// clientOptions points the Pub/Sub client at an emulator when one is
// configured, falling back to the standard PUBSUB_EMULATOR_HOST variable.
func clientOptions(cfg cliconfig.Config) []option.ClientOption {
	host := cfg.EmulatorHost
	if host == "" {
		host = os.Getenv("PUBSUB_EMULATOR_HOST")
	}
	if host == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(host),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
}

func libConfig(c cliconfig.Config) pubsink.Config {
	return pubsink.Config{
		Project:               c.Project,
		Topic:                 c.Topic,
		DeadLetterProject:     c.DeadLetterProject,
		DeadLetterTopic:       c.DeadLetterTopic,
		Attributes:            c.Attributes,
		Layout:                c.Layout,
		MaxBytesPerRequest:    c.MaxBytesPerRequest,
		MaxMessagesPerRequest: c.MaxMessagesPerRequest,
		ConcatMessages:        c.ConcatMessages,
		Timeout:               c.Timeout,
		MaxAttempts:           c.MaxAttempts,
		RetryBackoff:          c.RetryBackoff,
		MaxInFlight:           c.MaxInFlight,
		PublishRate:           c.PublishRate,
		CredentialsDir:        c.CredentialsDir,
		CredentialsFile:       c.CredentialsFile,
		MaxEvents:             c.MaxEvents,
		FlushInterval:         c.FlushInterval,
		PollInterval:          c.PollInterval,
		Once:                  c.Once,
	}
}
