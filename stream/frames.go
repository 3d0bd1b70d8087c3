package stream

import "github.com/hackai/chatd/models"

// FrameType enumerates the JSON-framed deltas of the message stream
// protocol. Each SSE event carries exactly one frame.
type FrameType string

const (
	FrameStart          FrameType = "start"
	FrameStartStep      FrameType = "start-step"
	FrameTextStart      FrameType = "text-start"
	FrameTextDelta      FrameType = "text-delta"
	FrameTextEnd        FrameType = "text-end"
	FrameReasoningStart FrameType = "reasoning-start"
	FrameReasoningDelta FrameType = "reasoning-delta"
	FrameReasoningEnd   FrameType = "reasoning-end"
	FrameSourceURL      FrameType = "source-url"
	FrameSourceDocument FrameType = "source-document"
	FrameFile           FrameType = "file"
	FrameFinishStep     FrameType = "finish-step"
	FrameFinish         FrameType = "finish"
	FrameError          FrameType = "error"
)

// Frame is one decoded stream event. Which fields are populated depends on
// Type; unknown fields are ignored on decode so the protocol can grow.
type Frame struct {
	Type FrameType `json:"type"`

	// start
	MessageID string `json:"messageId,omitempty"`

	// text-*/reasoning-*: ID names the open part, Delta carries a chunk.
	ID    string `json:"id,omitempty"`
	Delta string `json:"delta,omitempty"`

	// source-url / source-document / file
	SourceID  string `json:"sourceId,omitempty"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Filename  string `json:"filename,omitempty"`

	ProviderMetadata map[string]interface{} `json:"providerMetadata,omitempty"`

	// finish
	MessageMetadata *models.Metadata `json:"messageMetadata,omitempty"`

	// error
	ErrorText string `json:"errorText,omitempty"`
}

// doneMarker terminates the SSE stream after the last frame.
const doneMarker = "[DONE]"
