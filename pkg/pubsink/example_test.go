package pubsink_test

import (
	"context"
	"fmt"
	"os"

	"github.com/bft-labs/pubsink/pkg/log"
	"github.com/bft-labs/pubsink/pkg/pubsink"
)

// ExampleNew writes a group of events and waits for delivery.
func ExampleNew() {
	cfg := pubsink.Config{
		Project:    "my-project",
		Topic:      "app-logs",
		Attributes: "env:prod",
		Layout:     "${level} ${message}",
	}

	s, err := pubsink.New(cfg, pubsink.WithPublisher(newMemPublisher()))
	if err != nil {
		fmt.Printf("failed to create sink: %v\n", err)
		return
	}

	c := s.Write(context.Background(), []pubsink.AsyncEvent{
		{Event: pubsink.LogEvent{Level: "info", Message: "started"}},
		{Event: pubsink.LogEvent{Level: "warn", Message: "disk almost full"}},
	})
	if err := c.Wait(context.Background()); err != nil {
		fmt.Printf("write failed: %v\n", err)
		return
	}

	fmt.Printf("delivered %d batch(es)\n", c.Report().Delivered)
	// Output: delivered 1 batch(es)
}

// Example_withEventHandler shows how to observe deliveries.
func Example_withEventHandler() {
	handler := &printingHandler{}

	cfg := pubsink.Config{Project: "my-project", Topic: "app-logs", Layout: "${message}"}
	s, err := pubsink.New(cfg,
		pubsink.WithPublisher(newMemPublisher()),
		pubsink.WithEventHandler(handler),
	)
	if err != nil {
		fmt.Printf("failed to create sink: %v\n", err)
		return
	}

	c := s.Write(context.Background(), []pubsink.AsyncEvent{{Event: pubsink.LogEvent{Message: "hello"}}})
	_ = c.Wait(context.Background())
	// Output: delivered 1 message(s) to projects/my-project/topics/app-logs
}

// printingHandler prints delivery events.
type printingHandler struct {
	pubsink.BaseEventHandler
}

func (h *printingHandler) OnBatchDelivered(event pubsink.BatchDeliveredEvent) {
	fmt.Printf("delivered %d message(s) to %s\n", event.Messages, event.Destination)
}

// Example_withLogger shows the zerolog-backed logger from pkg/log.
func Example_withLogger() {
	logger := log.NewZerolog(os.Stderr, log.FormatJSON, "debug")

	s, err := pubsink.New(pubsink.Config{Project: "p", Topic: "t"},
		pubsink.WithLogger(logger),
		pubsink.WithPublisher(newMemPublisher()),
	)
	if err != nil {
		fmt.Printf("failed to create sink: %v\n", err)
		return
	}

	fmt.Println(s.Status())
	// Output: Stopped
}
