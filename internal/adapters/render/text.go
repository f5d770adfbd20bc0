// Package render turns log events into wire text.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// DefaultLayout is used when no layout is configured.
const DefaultLayout = "${time} ${level} ${logger} ${message}"

// LayoutJSON selects the JSON renderer instead of a text layout.
const LayoutJSON = "json"

// New returns the renderer for layout: the JSON renderer for "json",
// otherwise a text renderer.
func New(layout string) (ports.Renderer, error) {
	if strings.EqualFold(strings.TrimSpace(layout), LayoutJSON) {
		return NewJSONRenderer(), nil
	}
	if layout == "" {
		layout = DefaultLayout
	}
	return NewTextRenderer(layout)
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segTime
	segLevel
	segLogger
	segMessage
	segField
)

type segment struct {
	kind segmentKind
	text string // literal text or field name
}

// TextRenderer expands ${...} tokens in a layout.
//
// Supported tokens: ${time} (RFC 3339, UTC), ${level}, ${logger},
// ${message} and ${field:name}. A missing field renders as empty text.
type TextRenderer struct {
	layout   string
	segments []segment
}

// NewTextRenderer parses layout. Unknown or unterminated tokens are errors.
func NewTextRenderer(layout string) (*TextRenderer, error) {
	var segs []segment
	rest := layout
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			if rest != "" {
				segs = append(segs, segment{kind: segLiteral, text: rest})
			}
			break
		}
		if i > 0 {
			segs = append(segs, segment{kind: segLiteral, text: rest[:i]})
		}
		end := strings.IndexByte(rest[i:], '}')
		if end < 0 {
			return nil, fmt.Errorf("layout %q: unterminated token", layout)
		}
		seg, err := parseToken(rest[i+2 : i+end])
		if err != nil {
			return nil, fmt.Errorf("layout %q: %w", layout, err)
		}
		segs = append(segs, seg)
		rest = rest[i+end+1:]
	}
	return &TextRenderer{layout: layout, segments: segs}, nil
}

func parseToken(token string) (segment, error) {
	switch token {
	case "time":
		return segment{kind: segTime}, nil
	case "level":
		return segment{kind: segLevel}, nil
	case "logger":
		return segment{kind: segLogger}, nil
	case "message":
		return segment{kind: segMessage}, nil
	}
	if name, ok := strings.CutPrefix(token, "field:"); ok && name != "" {
		return segment{kind: segField, text: name}, nil
	}
	return segment{}, fmt.Errorf("unknown token ${%s}", token)
}

// Layout returns the layout the renderer was built from.
func (r *TextRenderer) Layout() string {
	return r.layout
}

// Render implements ports.Renderer.
func (r *TextRenderer) Render(ev domain.LogEvent) (string, error) {
	var sb strings.Builder
	for _, s := range r.segments {
		switch s.kind {
		case segLiteral:
			sb.WriteString(s.text)
		case segTime:
			sb.WriteString(formatTime(ev.Time))
		case segLevel:
			sb.WriteString(ev.Level)
		case segLogger:
			sb.WriteString(ev.Logger)
		case segMessage:
			sb.WriteString(ev.Message)
		case segField:
			v, _ := ev.Field(s.text)
			sb.WriteString(v)
		}
	}
	return sb.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
