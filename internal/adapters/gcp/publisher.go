// Package gcp publishes batches to Google Cloud Pub/Sub.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pubsub "cloud.google.com/go/pubsub/apiv1"
	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// DefaultTimeout bounds every publish call.
const DefaultTimeout = 3 * time.Second

// Config configures how publisher clients are built.
type Config struct {
	// CredentialsDir holds the service account key file.
	// Defaults to the working directory.
	CredentialsDir string

	// CredentialsFile is the service account key file name.
	// Empty means application default credentials.
	CredentialsFile string

	// Timeout bounds each publish call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// CredentialsPath returns the resolved key file path, or "" when
// application default credentials should be used.
func (c Config) CredentialsPath() (string, error) {
	if c.CredentialsFile == "" {
		return "", nil
	}
	if filepath.IsAbs(c.CredentialsFile) {
		return c.CredentialsFile, nil
	}
	dir := c.CredentialsDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve credentials directory: %w", err)
		}
		dir = wd
	}
	return filepath.Join(dir, c.CredentialsFile), nil
}

// Publisher implements ports.Publisher on top of the Pub/Sub publisher API.
// Each resolved destination gets its own client.
type Publisher struct {
	config Config
	opts   []option.ClientOption
	logger ports.Logger
}

// NewPublisher creates a publisher. Extra client options are appended to the
// credentials option, which lets callers point at an emulator.
func NewPublisher(config Config, logger ports.Logger, opts ...option.ClientOption) *Publisher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Publisher{
		config: config,
		opts:   opts,
		logger: logger,
	}
}

// Resolve builds a publisher client for dest.
func (p *Publisher) Resolve(ctx context.Context, dest domain.Destination) (ports.Handle, error) {
	path, err := p.config.CredentialsPath()
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(path))
	}
	opts = append(opts, p.opts...)

	client, err := pubsub.NewPublisherClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create publisher client: %w", err)
	}

	p.logger.Debug("publisher client created",
		ports.String("topic", dest.Key()),
		ports.Duration("timeout", p.config.Timeout),
	)
	return &handle{
		client:  client,
		topic:   dest.Key(),
		timeout: p.config.Timeout,
	}, nil
}

// handle publishes to one topic. It is safe for concurrent use.
type handle struct {
	client  *pubsub.PublisherClient
	topic   string
	timeout time.Duration
}

// noRetry replaces the client's default Publish retry policy. Each Publish is
// a single RPC; retries belong to the delivery coordinator.
var noRetry = gax.WithRetry(func() gax.Retryer { return nil })

// Publish sends the batch as one publish request and returns the message ids.
func (h *handle) Publish(ctx context.Context, batch domain.Batch) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req := &pubsubpb.PublishRequest{
		Topic:    h.topic,
		Messages: toProto(batch),
	}
	resp, err := h.client.Publish(ctx, req, noRetry)
	if err != nil {
		return nil, classify(err)
	}
	return resp.GetMessageIds(), nil
}

// Close releases the client connection.
func (h *handle) Close() error {
	return h.client.Close()
}

func toProto(batch domain.Batch) []*pubsubpb.PubsubMessage {
	msgs := make([]*pubsubpb.PubsubMessage, len(batch.Messages))
	for i, m := range batch.Messages {
		msgs[i] = &pubsubpb.PubsubMessage{
			Data:       m.Data,
			Attributes: m.Attributes.Map(),
		}
	}
	return msgs
}

// classify marks deadline expiry so the coordinator never retries it.
func classify(err error) error {
	if status.Code(err) == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrDeadlineExceeded, err)
	}
	return err
}
