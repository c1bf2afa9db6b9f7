package provider

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"iter"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

// PostJSON sends body to url and returns the open response when the status
// is 2xx. Other statuses are drained into a *StatusError and network
// failures become a *TransportError.
func PostJSON(ctx context.Context, client *http.Client, providerName, url string, headers map[string]string, body []byte) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigError{Provider: providerName, Reason: "invalid endpoint: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Provider: providerName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Provider: providerName, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// ReadBody reads a complete buffered response and closes it.
func ReadBody(providerName string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: providerName, Err: err}
	}
	return b, nil
}

// ServerSentEvents yields the data payload of every event in body and closes
// it when iteration ends. A "[DONE]" payload ends the sequence.
func ServerSentEvents(providerName string, body io.ReadCloser) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}
			if !yield([]byte(data), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, &TransportError{Provider: providerName, Err: err})
		}
	}
}
