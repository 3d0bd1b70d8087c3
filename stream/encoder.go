package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Encoder writes frames to an SSE response body. If the writer supports
// flushing, every frame is flushed so clients render deltas as they arrive.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// SSEHeaders are the response headers a streaming endpoint must set before
// the first frame.
func SSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func (e *Encoder) WriteFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.Flush()
	return nil
}

// WriteError emits an error frame. The stream stays well-formed so the
// client decoder can surface the failure inline.
func (e *Encoder) WriteError(message string) error {
	return e.WriteFrame(Frame{Type: FrameError, ErrorText: message})
}

// WriteDone terminates the stream.
func (e *Encoder) WriteDone() error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", doneMarker); err != nil {
		return err
	}
	e.Flush()
	return nil
}

func (e *Encoder) Flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
