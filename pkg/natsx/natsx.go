// Package natsx connects to the NATS server used for discussion events.
package natsx

import (
	"cmp"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// ClientName identifies symposium connections on the server.
const ClientName = "symposium"

// URL returns url, then NATS_URL, then the nats.go default.
func URL(url string) string {
	return cmp.Or(url, os.Getenv("NATS_URL"), nats.DefaultURL)
}

// Connect opens a NATS connection. Without options the connection is named
// after ClientName, compressed and keeps reconnecting.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = DefaultOptions()
	}
	return nats.Connect(URL(url), opts...)
}

// DefaultOptions names the client, enables compression and reconnects
// forever with a 2 second wait.
func DefaultOptions() []nats.Option {
	return []nats.Option{
		nats.Name(ClientName),
		nats.Compression(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
}
