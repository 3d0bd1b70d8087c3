package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModalityForMediaType(t *testing.T) {
	assert.Equal(t, ModalityImage, ModalityForMediaType("image/png"))
	assert.Equal(t, ModalityAudio, ModalityForMediaType("audio/mpeg"))
	assert.Equal(t, ModalityVideo, ModalityForMediaType("video/mp4"))
	assert.Equal(t, "", ModalityForMediaType("application/pdf"))
}

func TestRequiredModalitiesAlwaysIncludesText(t *testing.T) {
	assert.Equal(t, []string{ModalityText}, RequiredModalities(nil))
}

func TestRequiredModalitiesCoversWholeHistory(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{
			TextPart("look at this"),
			FilePart("image/jpeg", "photo.jpg", "data:..."),
		}},
		{Role: RoleAssistant, Parts: []Part{TextPart("nice photo")}},
		{Role: RoleUser, Parts: []Part{FilePart("audio/wav", "clip.wav", "data:...")}},
	}

	assert.Equal(t, []string{ModalityAudio, ModalityImage, ModalityText}, RequiredModalities(msgs))
}

func TestMissingModalities(t *testing.T) {
	required := []string{ModalityImage, ModalityText}

	assert.Empty(t, MissingModalities([]string{ModalityText, ModalityImage, ModalityAudio}, required))
	assert.Equal(t, []string{ModalityImage}, MissingModalities([]string{ModalityText}, required))
}
