// Package source provides event sources for the agent loop.
package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hpcloud/tail"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// DefaultIdleWait is how long Next waits for a line before reporting io.EOF.
const DefaultIdleWait = 250 * time.Millisecond

// DefaultLevel is the level assigned to events read from plain text.
const DefaultLevel = "info"

// TailConfig configures a file source.
type TailConfig struct {
	Path string

	// Follow keeps reading as the file grows and survives rotation.
	// Without it the source is exhausted at end of file.
	Follow bool

	// FromStart reads existing content; otherwise a followed file is
	// read from its current end.
	FromStart bool

	// Poll watches the file by polling instead of inotify.
	Poll bool

	// IdleWait bounds how long Next blocks while following.
	IdleWait time.Duration

	// Level is assigned to every event. Defaults to DefaultLevel.
	Level string
}

// TailSource reads log lines from a file.
type TailSource struct {
	config TailConfig
	tail   *tail.Tail
	logger string
}

// NewTailSource starts tailing config.Path.
func NewTailSource(config TailConfig) (*TailSource, error) {
	if config.IdleWait <= 0 {
		config.IdleWait = DefaultIdleWait
	}
	if config.Level == "" {
		config.Level = DefaultLevel
	}

	tc := tail.Config{
		Follow:    config.Follow,
		ReOpen:    config.Follow,
		Poll:      config.Poll,
		MustExist: !config.Follow,
		Logger:    tail.DiscardingLogger,
	}
	if config.Follow && !config.FromStart {
		tc.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(config.Path, tc)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", config.Path, err)
	}
	return &TailSource{
		config: config,
		tail:   t,
		logger: filepath.Base(config.Path),
	}, nil
}

// Next implements ports.EventSource.
// Without Follow it blocks until a line arrives or the file is consumed.
func (s *TailSource) Next(ctx context.Context) (domain.LogEvent, error) {
	var idle <-chan time.Time
	if s.config.Follow {
		timer := time.NewTimer(s.config.IdleWait)
		defer timer.Stop()
		idle = timer.C
	}

	select {
	case line, ok := <-s.tail.Lines:
		if !ok {
			return domain.LogEvent{}, ports.ErrSourceExhausted
		}
		if line.Err != nil {
			return domain.LogEvent{}, line.Err
		}
		return domain.LogEvent{
			Time:    line.Time,
			Level:   s.config.Level,
			Logger:  s.logger,
			Message: line.Text,
		}, nil
	case <-idle:
		return domain.LogEvent{}, io.EOF
	case <-ctx.Done():
		return domain.LogEvent{}, ctx.Err()
	}
}

// Close stops tailing and releases inotify watches.
func (s *TailSource) Close() error {
	err := s.tail.Stop()
	s.tail.Cleanup()
	return err
}
