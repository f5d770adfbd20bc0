package source

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// maxLineBytes is the longest line a ReaderSource accepts.
const maxLineBytes = 8 << 20

type readResult struct {
	text string
	err  error
}

// ReaderSource reads newline-separated events from a stream such as stdin.
type ReaderSource struct {
	r        io.Reader
	name     string
	level    string
	idleWait time.Duration
	lines    chan readResult
	stop     chan struct{}
	once     sync.Once
}

// NewReaderSource starts reading r in the background. name becomes the
// logger of every event. idleWait <= 0 uses DefaultIdleWait.
func NewReaderSource(r io.Reader, name string, idleWait time.Duration) *ReaderSource {
	if idleWait <= 0 {
		idleWait = DefaultIdleWait
	}
	s := &ReaderSource{
		r:        r,
		name:     name,
		level:    DefaultLevel,
		idleWait: idleWait,
		lines:    make(chan readResult),
		stop:     make(chan struct{}),
	}
	go s.scan()
	return s
}

func (s *ReaderSource) scan() {
	defer close(s.lines)

	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		select {
		case s.lines <- readResult{text: sc.Text()}:
		case <-s.stop:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case s.lines <- readResult{err: err}:
		case <-s.stop:
		}
	}
}

// Next implements ports.EventSource.
func (s *ReaderSource) Next(ctx context.Context) (domain.LogEvent, error) {
	timer := time.NewTimer(s.idleWait)
	defer timer.Stop()

	select {
	case res, ok := <-s.lines:
		if !ok {
			return domain.LogEvent{}, ports.ErrSourceExhausted
		}
		if res.err != nil {
			return domain.LogEvent{}, res.err
		}
		return domain.LogEvent{
			Time:    time.Now(),
			Level:   s.level,
			Logger:  s.name,
			Message: res.text,
		}, nil
	case <-timer.C:
		return domain.LogEvent{}, io.EOF
	case <-ctx.Done():
		return domain.LogEvent{}, ctx.Err()
	}
}

// Close stops the background reader. The underlying reader is not closed.
func (s *ReaderSource) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
