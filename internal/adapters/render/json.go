package render

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/bft-labs/pubsink/internal/domain"
)

type jsonEvent struct {
	Time    string            `json:"time,omitempty"`
	Level   string            `json:"level,omitempty"`
	Logger  string            `json:"logger,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSONRenderer renders each event as one JSON object.
// Map keys are emitted in sorted order, so output is deterministic.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render implements ports.Renderer.
func (JSONRenderer) Render(ev domain.LogEvent) (string, error) {
	out := jsonEvent{
		Time:    formatTime(ev.Time),
		Level:   ev.Level,
		Logger:  ev.Logger,
		Message: ev.Message,
	}
	if len(ev.Fields) > 0 {
		out.Fields = make(map[string]string, len(ev.Fields))
		for _, f := range ev.Fields {
			out.Fields[f.Key] = f.Value
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(b), nil
}
