package domain

import (
	"fmt"
	"strings"
)

// Tag is a single message attribute.
type Tag struct {
	Key   string
	Value string
}

// Tags is an ordered attribute set applied identically to every outbound message.
type Tags []Tag

// ParseTags parses an attribute string of the form "key1:value1;key2:value2".
//
// Empty segments are skipped and whitespace around keys and values is trimmed.
// The value is everything after the first ':' so values may contain ':'.
// A segment without ':', an empty key, or a repeated key is an error.
func ParseTags(s string) (Tags, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var tags Tags
	seen := make(map[string]bool)
	for _, segment := range strings.Split(s, ";") {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			return nil, fmt.Errorf("%w: segment %q has no ':'", ErrInvalidTags, segment)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: segment %q has an empty key", ErrInvalidTags, segment)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidTags, key)
		}
		seen[key] = true
		tags = append(tags, Tag{Key: key, Value: strings.TrimSpace(value)})
	}
	return tags, nil
}

// Map returns the tags as a map for the wire format.
// Returns nil for an empty set.
func (t Tags) Map() map[string]string {
	if len(t) == 0 {
		return nil
	}
	m := make(map[string]string, len(t))
	for _, tag := range t {
		m[tag.Key] = tag.Value
	}
	return m
}

// String renders the tags back into "key:value;key:value" form.
func (t Tags) String() string {
	parts := make([]string, len(t))
	for i, tag := range t {
		parts[i] = tag.Key + ":" + tag.Value
	}
	return strings.Join(parts, ";")
}
