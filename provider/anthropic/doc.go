// Package anthropic implements the anthropic-style provider.Adapter against
// the Messages API. Payloads are raw JSON built with sjson and read with
// gjson; streaming uses server-sent events and only text deltas carry content.
package anthropic
