package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyProvider is the key used for provider names.
	KeyProvider = "provider"
	// KeyConversation is the key used for conversation ids.
	KeyConversation = "conversation_id"
	// KeyParticipant is the key used for participant groups.
	KeyParticipant = "participant"
)

// LoggerName returns an attribute for the logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Provider returns an attribute naming a provider backend.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Conversation returns an attribute carrying a conversation id.
func Conversation(id string) slog.Attr {
	return slog.String(KeyConversation, id)
}

// Participant groups the identifying fields of a discussion participant.
func Participant(id, role, providerName string) slog.Attr {
	return slog.Group(KeyParticipant,
		slog.String("id", id),
		slog.String("role", role),
		slog.String("provider", providerName),
	)
}

// Attempt groups a retry attempt counter with its budget.
func Attempt(n, of int) slog.Attr {
	return slog.Group("attempt", slog.Int("n", n), slog.Int("of", of))
}
