package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackai/chatd/models"
)

func TestReconcilerBuildsTextMessage(t *testing.T) {
	rec := NewReconciler("")

	frames := []Frame{
		{Type: FrameStart, MessageID: "msg-1"},
		{Type: FrameStartStep},
		{Type: FrameTextStart, ID: "t1"},
		{Type: FrameTextDelta, ID: "t1", Delta: "Hi"},
		{Type: FrameTextDelta, ID: "t1", Delta: " there"},
		{Type: FrameTextEnd, ID: "t1"},
		{Type: FrameFinishStep},
		{Type: FrameFinish, MessageMetadata: &models.Metadata{
			Usage: &models.Usage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13},
		}},
	}
	for _, f := range frames {
		require.NoError(t, rec.Apply(f))
	}

	msg := rec.Message()
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, models.PartTypeStepStart, msg.Parts[0].Type)
	assert.Equal(t, models.PartTypeText, msg.Parts[1].Type)
	assert.Equal(t, "Hi there", msg.Parts[1].Text)
	assert.True(t, rec.Finished())
	assert.Equal(t, 13, msg.Usage().TotalTokens)
}

func TestReconcilerInterleavesReasoningAndText(t *testing.T) {
	rec := NewReconciler("msg-1")

	frames := []Frame{
		{Type: FrameStart},
		{Type: FrameReasoningStart, ID: "r1"},
		{Type: FrameReasoningDelta, ID: "r1", Delta: "thinking"},
		{Type: FrameReasoningEnd, ID: "r1"},
		{Type: FrameTextStart, ID: "t1"},
		{Type: FrameTextDelta, ID: "t1", Delta: "answer"},
		{Type: FrameTextEnd, ID: "t1"},
		{Type: FrameFinish},
	}
	for _, f := range frames {
		require.NoError(t, rec.Apply(f))
	}

	msg := rec.Message()
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, models.PartTypeReasoning, msg.Parts[0].Type)
	assert.Equal(t, "thinking", msg.Parts[0].Text)
	assert.Equal(t, "answer", msg.Parts[1].Text)
}

func TestReconcilerDuplicateFinishDoesNotDoubleCountUsage(t *testing.T) {
	rec := NewReconciler("msg-1")
	usage := &models.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10}

	require.NoError(t, rec.Apply(Frame{Type: FrameFinish, MessageMetadata: &models.Metadata{Usage: usage}}))
	require.NoError(t, rec.Apply(Frame{Type: FrameFinish, MessageMetadata: &models.Metadata{Usage: usage}}))

	msg := rec.Message()
	assert.Equal(t, 10, msg.Usage().TotalTokens)
}

func TestReconcilerProtocolViolations(t *testing.T) {
	cases := []struct {
		name   string
		frames []Frame
	}{
		{
			name:   "delta without open part",
			frames: []Frame{{Type: FrameTextDelta, ID: "t1", Delta: "x"}},
		},
		{
			name: "delta for wrong part id",
			frames: []Frame{
				{Type: FrameTextStart, ID: "t1"},
				{Type: FrameTextDelta, ID: "t2", Delta: "x"},
			},
		},
		{
			name: "double text start",
			frames: []Frame{
				{Type: FrameTextStart, ID: "t1"},
				{Type: FrameTextStart, ID: "t2"},
			},
		},
		{
			name:   "end without start",
			frames: []Frame{{Type: FrameReasoningEnd, ID: "r1"}},
		},
		{
			name:   "source url without url",
			frames: []Frame{{Type: FrameSourceURL, SourceID: "s1"}},
		},
		{
			name:   "unknown frame type",
			frames: []Frame{{Type: "mystery"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewReconciler("msg-1")
			var err error
			for _, f := range tc.frames {
				err = rec.Apply(f)
			}
			var perr *models.ProtocolError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestReconcilerRecordsErrorFrame(t *testing.T) {
	rec := NewReconciler("msg-1")
	require.NoError(t, rec.Apply(Frame{Type: FrameError, ErrorText: "boom"}))
	assert.Equal(t, "boom", rec.ErrText())
	assert.False(t, rec.Finished())
}

func TestReconcilerSnapshotIsStable(t *testing.T) {
	rec := NewReconciler("msg-1")
	require.NoError(t, rec.Apply(Frame{Type: FrameTextStart, ID: "t1"}))
	require.NoError(t, rec.Apply(Frame{Type: FrameTextDelta, ID: "t1", Delta: "before"}))

	snap := rec.Message()
	require.NoError(t, rec.Apply(Frame{Type: FrameTextDelta, ID: "t1", Delta: " after"}))

	assert.Equal(t, "before", snap.Parts[0].Text)
	assert.Equal(t, "before after", rec.Message().Parts[0].Text)
}
