package models

import "strings"

// PartType discriminates the kinds of message fragments a model turn can
// produce. The set matches the wire protocol and the parts table one-to-one.
type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeReasoning      PartType = "reasoning"
	PartTypeFile           PartType = "file"
	PartTypeSourceURL      PartType = "source-url"
	PartTypeSourceDocument PartType = "source-document"
	PartTypeStepStart      PartType = "step-start"
)

// RedactedSentinel is what upstream substitutes for reasoning content it
// refuses to reveal. It must never be rendered literally.
const RedactedSentinel = "[REDACTED]"

// Part is one typed fragment of a message. The Type tag decides which
// fields are meaningful; everything else stays at its zero value.
//
//   - text/reasoning: Text (required), ProviderMetadata optional
//   - file: MediaType and URL required, Filename optional
//   - source-url: SourceID and URL required, Title optional
//   - source-document: SourceID, MediaType and Title required, Filename optional
//   - step-start: no payload
type Part struct {
	Type PartType `json:"type"`

	Text string `json:"text,omitempty"`

	MediaType string `json:"mediaType,omitempty"`
	Filename  string `json:"filename,omitempty"`
	URL       string `json:"url,omitempty"`

	SourceID string `json:"sourceId,omitempty"`
	Title    string `json:"title,omitempty"`

	ProviderMetadata map[string]interface{} `json:"providerMetadata,omitempty"`
}

func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

func ReasoningPart(text string) Part {
	return Part{Type: PartTypeReasoning, Text: text}
}

func FilePart(mediaType, filename, url string) Part {
	return Part{Type: PartTypeFile, MediaType: mediaType, Filename: filename, URL: url}
}

func SourceURLPart(sourceID, url, title string) Part {
	return Part{Type: PartTypeSourceURL, SourceID: sourceID, URL: url, Title: title}
}

func SourceDocumentPart(sourceID, mediaType, title, filename string) Part {
	return Part{Type: PartTypeSourceDocument, SourceID: sourceID, MediaType: mediaType, Title: title, Filename: filename}
}

func StepStartPart() Part {
	return Part{Type: PartTypeStepStart}
}

// RenderedReasoning returns the reasoning text with redaction sentinels
// stripped. An empty result means the part should be omitted from rendered
// output entirely (the stored record keeps the raw text).
func (p Part) RenderedReasoning() string {
	if p.Type != PartTypeReasoning {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(p.Text, RedactedSentinel, ""))
}
