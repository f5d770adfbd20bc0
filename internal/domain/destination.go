package domain

import "fmt"

// Destination identifies a publish target.
type Destination struct {
	Project string
	Topic   string
}

// Key returns the fully qualified topic name, which is also the
// destination's identity for handle caching.
func (d Destination) Key() string {
	return fmt.Sprintf("projects/%s/topics/%s", d.Project, d.Topic)
}

// IsZero reports whether the destination is unset.
func (d Destination) IsZero() bool {
	return d.Project == "" && d.Topic == ""
}

// Complete reports whether both project and topic are set.
func (d Destination) Complete() bool {
	return d.Project != "" && d.Topic != ""
}

// String implements fmt.Stringer.
func (d Destination) String() string {
	return d.Key()
}

// Route pairs the primary destination with an optional dead-letter destination.
type Route struct {
	Primary    Destination
	DeadLetter *Destination
}

// HasDeadLetter reports whether failed batches can be redirected.
func (r Route) HasDeadLetter() bool {
	return r.DeadLetter != nil && !r.DeadLetter.IsZero()
}
