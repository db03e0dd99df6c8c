package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"

	"nexusgate/pkg/proxy/types"
)

// Writer frames OpenAI-shaped chunks as server-sent events on the caller
// connection, flushing after every event so chunks are delivered as they
// arrive.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewWriter prepares an SSE response writer. Headers are written lazily on
// the first event so early failures can still use a JSON error status.
func NewWriter(w http.ResponseWriter) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Started reports whether the SSE headers have been flushed. Once true,
// errors must travel in-band as error events.
func (sw *Writer) Started() bool {
	return sw.started
}

// start writes the SSE response headers.
func (sw *Writer) start() {
	if sw.started {
		return
	}
	header := sw.w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
	sw.started = true
}

// WriteChunk emits one chunk as a data event.
func (sw *Writer) WriteChunk(chunk *types.ChatCompletionChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return sw.writeEvent(payload)
}

// WriteError emits a final in-band error event. The HTTP status is already
// committed, so the kind and message travel in the event body.
func (sw *Writer) WriteError(gatewayErr *types.Error) error {
	payload, err := json.Marshal(gatewayErr.Envelope())
	if err != nil {
		return err
	}
	return sw.writeEvent(payload)
}

// WriteDone emits the terminal sentinel.
func (sw *Writer) WriteDone() error {
	return sw.writeEvent([]byte("[DONE]"))
}

// writeEvent frames and flushes a single event.
func (sw *Writer) writeEvent(payload []byte) error {
	sw.start()
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}
