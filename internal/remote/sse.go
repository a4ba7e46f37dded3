package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter. Call
// Init once before the first WriteEvent to set the stream headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter wraps w. Streaming needs the ResponseWriter to implement
// http.Flusher; without it writes still succeed but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: f}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// WriteEvent serializes the event as one "data: {json}\n\n" frame and
// flushes it so the client sees it immediately.
func (sw *SSEWriter) WriteEvent(event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// ReadEvents parses SSE frames from body and delivers them on the
// returned channel. The channel closes when the body is exhausted or ctx
// is cancelled; the body is closed when reading finishes.
//
// Parsing follows the SSE rules the writer relies on: "data:" lines carry
// the payload (multiple lines per event are joined with newlines), ":"
// lines are comments, an empty line ends the event, and unknown fields
// are ignored. Malformed JSON yields a StreamEvent with Err set and the
// reader keeps going.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		var dataBuf strings.Builder

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				// Emit any data accumulated when the stream ends mid-event.
				if dataBuf.Len() > 0 {
					emitEvent(ctx, ch, dataBuf.String())
				}
				return
			}

			line := scanner.Text()
			switch {
			case line == "":
				if dataBuf.Len() > 0 {
					emitEvent(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}
			case strings.HasPrefix(line, ":"):
				// Comment, skip.
			default:
				payload, ok := strings.CutPrefix(line, "data:")
				if !ok {
					continue
				}
				payload = strings.TrimPrefix(payload, " ")
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(payload)
			}
		}
	}()
	return ch
}

// emitEvent unmarshals raw and sends it on ch, honoring cancellation.
// JSON failures are surfaced as an event with Err set.
func emitEvent(ctx context.Context, ch chan<- StreamEvent, raw string) {
	var ev StreamEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		ev = StreamEvent{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
