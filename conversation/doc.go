// Package conversation holds the transcript data model shared by the
// orchestrator, the provider adapters and the persistence layer.
//
// A Conversation is created when a discussion starts and is only ever mutated
// by the orchestrator that owns it: messages are appended, never edited, and
// the status moves from active to completed or error exactly once.
//
// Message metadata is a closed struct shared by stores, event sinks and
// renderers.
package conversation
