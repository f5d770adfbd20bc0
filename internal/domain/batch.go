package domain

// Message is one deliverable unit: a payload plus the full tag set.
type Message struct {
	Data       []byte
	Attributes Tags
}

// Batch is an ordered sequence of messages destined for one publish call.
type Batch struct {
	// Messages are delivered in this order
	Messages []Message

	// Records is the number of source records folded into the batch.
	// In concatenation mode this exceeds len(Messages).
	Records int

	// TotalBytes is the sum of all message payload lengths
	TotalBytes int
}

// Add appends a message covering the given number of source records.
func (b *Batch) Add(msg Message, records int) {
	b.Messages = append(b.Messages, msg)
	b.Records += records
	b.TotalBytes += len(msg.Data)
}

// Size returns the number of messages in the batch.
func (b *Batch) Size() int {
	return len(b.Messages)
}

// Empty returns true if the batch has no messages.
func (b *Batch) Empty() bool {
	return len(b.Messages) == 0
}

// BatchPlan is the output of forming batches from a set of records.
type BatchPlan struct {
	// Batches preserve input record order
	Batches []Batch

	// Oversized holds records rejected because they exceed the byte limit
	Oversized []Record
}

// MessageCount returns the number of messages across all batches.
func (p BatchPlan) MessageCount() int {
	n := 0
	for _, b := range p.Batches {
		n += b.Size()
	}
	return n
}

// RecordCount returns the number of source records placed in batches.
func (p BatchPlan) RecordCount() int {
	n := 0
	for _, b := range p.Batches {
		n += b.Records
	}
	return n
}
