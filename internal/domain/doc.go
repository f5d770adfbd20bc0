// Package domain contains the core entities and value objects for pubsink.
//
// This package has no dependencies on infrastructure concerns (Pub/Sub,
// file system, logging) and contains only the data model and its rules.
//
// # Entities
//
//   - [LogEvent]: A log entry handed to the target by the host
//   - [Record]: The rendered wire text of one event
//   - [Tags]: The attribute set attached to every outbound message
//   - [Message]: One deliverable unit (payload + tags)
//   - [Batch]: Messages destined for a single publish call
//   - [Outcome]: The classified result of one publish call
//   - [Destination]: A publish target (project + topic)
//
// # Design Principles
//
// Domain entities are:
//   - Created per write invocation and discarded at its end
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
