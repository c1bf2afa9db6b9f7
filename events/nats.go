package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when NATS is given an empty prefix.
const DefaultSubjectPrefix = "symposium.events"

type natsSink struct {
	client *nats.Conn
	prefix string
}

// NATS publishes every event as JSON to <prefix>.<conversation id>.
// Publication is asynchronous in the client; failures are logged.
func NATS(client *nats.Conn, prefix string) Sink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &natsSink{client: client, prefix: prefix}
}

// Subject returns the subject events of conversationID are published on.
func Subject(prefix, conversationID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + conversationID
}

func (n *natsSink) Publish(ctx context.Context, evt Event) {
	data, err := ToJSON(evt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode event", slogx.LoggerName("events"), slogx.Error(err))
		return
	}
	subject := Subject(n.prefix, evt.Meta().ConversationID)
	if err := n.client.Publish(subject, data); err != nil {
		slog.ErrorContext(ctx, "failed to publish event",
			slogx.LoggerName("events"),
			slog.String("subject", subject),
			slogx.Error(err),
		)
	}
}

// SubscribeNATS decodes events published on subject (wildcards allowed) and
// forwards them to sink until the subscription is drained or unsubscribed.
func SubscribeNATS(ctx context.Context, client *nats.Conn, subject string, sink Sink) (*nats.Subscription, error) {
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	return client.Subscribe(subject, func(msg *nats.Msg) {
		evt, err := FromJSON(msg.Data)
		if err != nil {
			slog.ErrorContext(ctx, "failed to unmarshal event", slogx.LoggerName("events"), slogx.Error(err))
			return
		}
		sink.Publish(ctx, evt)
	})
}
