// Package provider implements an abstraction layer for talking to language
// model backends (OpenAI-compatible, Anthropic, Google) in a consistent way.
//
// Design decisions:
//   - Capability interface: every wire-format family implements the four
//     operations of Adapter (format, call, parse, parse fragment); there is no
//     base type to inherit from and no adapter sees another adapter's payloads.
//   - Typed payloads: Adapter is generic over its request payload, buffered
//     response and stream fragment types so mismatches fail at compile time.
//   - Streaming first: a call is attempted as a stream and falls back to a
//     buffered call within the same attempt when the stream fails.
//   - Fixed-delay retry: transient failures are retried a fixed number of
//     times with a constant delay between attempts.
//   - Typed failures: transport, status, decode and configuration failures are
//     distinct error types so the retry policy can classify them.
//
// Key concepts:
//   - Adapter: vendor translation (FormatMessages, MakeCall, ParseResponse,
//     ParseStreamFragment)
//   - Call: either a buffered response or a sequence of raw stream fragments
//   - RetryPolicy: attempt budget, delay, per-call timeout and the transient
//     error signatures
//   - Generator: the uniform GenerateResponse contract the orchestrator uses
//   - Resilient: the Generator that wraps an Adapter with fallback and retry
//
// Example usage:
//
//	adapter := openai.New(provider.Config{Name: "openai", Model: "gpt-4o-mini", APIKey: key})
//	gen := provider.Wrap("openai", adapter, provider.WithPolicy(provider.DefaultRetryPolicy()))
//
//	text, err := gen.GenerateResponse(ctx, []conversation.Message{
//	    conversation.NewUserMessage("Is remote work more productive?"),
//	}, "You open the discussion.")
package provider
