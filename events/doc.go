// Package events describes what happens during a discussion and delivers it
// to interested consumers.
//
// Design decisions:
//   - Closed set: every event is one of six concrete types sharing an
//     Envelope (owner, conversation, timestamp)
//   - Fire and forget: Sink.Publish never returns an error and never blocks
//     the discussion; sinks log or drop what they cannot deliver
//   - Self-describing JSON: the "type" field carries the event kind so
//     FromJSON can restore the concrete type
//
// Event kinds:
//   - DiscussionStarted: validated participants, before any provider call
//   - RoundStarted: a stage begins
//   - MessageReceived: an answer was appended to the transcript
//   - FirstSpeakerRetry: the opening answer was rejected and is retried
//   - DiscussionCompleted: final transcript
//   - DiscussionError: the discussion was aborted
//
// Sinks:
//   - Log: structured slog output
//   - Channel: buffered channel, drops when full
//   - Recorder: in-memory history with cursor reads for polling consumers
//   - NATS: JSON publication to <prefix>.<conversation id>
//   - Composite: fan-out to several sinks
//
// Example usage:
//
//	rec := events.NewRecorder()
//	sink := events.Composite(events.Log(slog.Default()), rec)
//	orch := symposium.New(reg, catalog, symposium.WithSink(sink))
//
//	for _, evt := range rec.Since(0) {
//	    switch e := evt.(type) {
//	    case events.MessageReceived:
//	        fmt.Println(e.Message.Content)
//	    case events.DiscussionError:
//	        fmt.Println("failed:", e.Error)
//	    }
//	}
package events
