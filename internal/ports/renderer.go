package ports

import "github.com/bft-labs/pubsink/internal/domain"

// Renderer turns one log event into its wire text.
// Implementations must be deterministic and free of side effects.
type Renderer interface {
	Render(event domain.LogEvent) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(event domain.LogEvent) (string, error)

// Render calls f(event).
func (f RendererFunc) Render(event domain.LogEvent) (string, error) {
	return f(event)
}
