// Package google implements the google-style provider.Adapter against the
// Gemini generateContent API. Assistant turns use the "model" role and system
// text travels in systemInstruction.
package google
