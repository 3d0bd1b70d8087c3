package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackai/chatd/models"
)

func sseBody(frames ...string) string {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString("data: " + f + "\n\n")
	}
	return b.String()
}

func TestDecoderDecodesFullStream(t *testing.T) {
	body := sseBody(
		`{"type":"start","messageId":"msg-1"}`,
		`{"type":"text-start","id":"t1"}`,
		`{"type":"text-delta","id":"t1","delta":"Hello"}`,
		`{"type":"text-end","id":"t1"}`,
		`{"type":"finish","messageMetadata":{"usage":{"promptTokens":4,"completionTokens":1,"totalTokens":5}}}`,
		`[DONE]`,
	)

	rec := NewReconciler("")
	var updates int
	dec := NewDecoder(strings.NewReader(body), rec, func(models.Message) { updates++ })

	require.NoError(t, dec.Run())

	msg := rec.Message()
	assert.Equal(t, "msg-1", msg.ID)
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "Hello", msg.Parts[0].Text)
	assert.Equal(t, 5, msg.Usage().TotalTokens)
	// One notification per applied frame.
	assert.Equal(t, 5, updates)
}

func TestDecoderSkipsNonDataLines(t *testing.T) {
	body := ": keepalive comment\n\n" +
		"event: something\n\n" +
		sseBody(`{"type":"start","messageId":"m"}`, `{"type":"finish"}`, `[DONE]`)

	rec := NewReconciler("")
	dec := NewDecoder(strings.NewReader(body), rec, nil)
	require.NoError(t, dec.Run())
	assert.True(t, rec.Finished())
}

func TestDecoderTruncationKeepsPartialParts(t *testing.T) {
	body := sseBody(
		`{"type":"start","messageId":"msg-1"}`,
		`{"type":"text-start","id":"t1"}`,
		`{"type":"text-delta","id":"t1","delta":"partial"}`,
	)

	rec := NewReconciler("")
	dec := NewDecoder(strings.NewReader(body), rec, nil)

	err := dec.Run()
	require.ErrorIs(t, err, ErrTruncated)

	msg := rec.Message()
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "partial", msg.Parts[0].Text)
	assert.False(t, rec.Finished())
}

func TestDecoderDoneWithoutFinishIsTruncated(t *testing.T) {
	body := sseBody(`{"type":"start","messageId":"msg-1"}`, `[DONE]`)

	dec := NewDecoder(strings.NewReader(body), NewReconciler(""), nil)
	require.ErrorIs(t, dec.Run(), ErrTruncated)
}

func TestDecoderMalformedFrameAbortsWithProtocolError(t *testing.T) {
	body := sseBody(`{"type":"start"`, `[DONE]`)

	dec := NewDecoder(strings.NewReader(body), NewReconciler(""), nil)
	var perr *models.ProtocolError
	require.ErrorAs(t, dec.Run(), &perr)
}

func TestDecoderSurfacesErrorFrame(t *testing.T) {
	body := sseBody(
		`{"type":"start","messageId":"msg-1"}`,
		`{"type":"error","errorText":"upstream exploded"}`,
		`[DONE]`,
	)

	dec := NewDecoder(strings.NewReader(body), NewReconciler(""), nil)
	err := dec.Run()
	require.ErrorIs(t, err, ErrStreamFailed)
	assert.Contains(t, err.Error(), "upstream exploded")
}
