package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hackai/chatd/models"
)

// ErrTruncated means the connection dropped before a finish frame arrived.
// The parts accumulated so far are retained on the reconciler; the message
// must be marked errored, not finalized as complete.
var ErrTruncated = errors.New("stream closed before finish")

// ErrStreamFailed is returned when the stream carried an error frame. The
// frame text is wrapped so callers can display it.
var ErrStreamFailed = errors.New("stream reported an error")

// Decoder reads SSE-framed protocol events and feeds them to a reconciler,
// notifying the caller after every applied frame so a UI can re-render
// incrementally.
type Decoder struct {
	r        *bufio.Reader
	rec      *Reconciler
	onUpdate func(models.Message)
}

// NewDecoder wraps the response body. onUpdate may be nil.
func NewDecoder(body io.Reader, rec *Reconciler, onUpdate func(models.Message)) *Decoder {
	return &Decoder{
		r:        bufio.NewReader(body),
		rec:      rec,
		onUpdate: onUpdate,
	}
}

// Run consumes the stream until the done marker, a finish frame followed by
// EOF, or an error. A malformed frame aborts with *models.ProtocolError.
func (d *Decoder) Run() error {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return d.finishOrTruncated()
			}
			// Connection-level failure mid-stream: same contract as EOF,
			// the partial message is preserved by the reconciler.
			if d.rec.Finished() {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrTruncated, err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == doneMarker {
			return d.finishOrTruncated()
		}

		var frame Frame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return &models.ProtocolError{Reason: fmt.Sprintf("malformed frame: %v", err)}
		}
		if err := d.rec.Apply(frame); err != nil {
			return err
		}
		if d.onUpdate != nil {
			d.onUpdate(d.rec.Message())
		}
	}
}

func (d *Decoder) finishOrTruncated() error {
	if errText := d.rec.ErrText(); errText != "" {
		return fmt.Errorf("%w: %s", ErrStreamFailed, errText)
	}
	if !d.rec.Finished() {
		return ErrTruncated
	}
	return nil
}
