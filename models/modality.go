package models

import (
	"sort"
	"strings"
)

// Input modalities a model can declare support for.
const (
	ModalityText  = "text"
	ModalityImage = "image"
	ModalityAudio = "audio"
	ModalityVideo = "video"
)

// ModalityForMediaType maps a media type to the input modality it demands
// of a model, or "" for types that don't add a requirement.
func ModalityForMediaType(mediaType string) string {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return ModalityImage
	case strings.HasPrefix(mediaType, "audio/"):
		return ModalityAudio
	case strings.HasPrefix(mediaType, "video/"):
		return ModalityVideo
	default:
		return ""
	}
}

// RequiredModalities collects the input modalities the whole conversation
// demands. Text is always required; file attachments add their modality.
// The result is sorted for stable comparison.
func RequiredModalities(messages []Message) []string {
	set := map[string]bool{ModalityText: true}
	for i := range messages {
		for _, part := range messages[i].Parts {
			if part.Type != PartTypeFile {
				continue
			}
			if m := ModalityForMediaType(part.MediaType); m != "" {
				set[m] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// MissingModalities returns the required modalities the given model input
// set does not cover. An empty result means the model is compatible.
func MissingModalities(inputModalities, required []string) []string {
	have := make(map[string]bool, len(inputModalities))
	for _, m := range inputModalities {
		have[m] = true
	}
	var missing []string
	for _, m := range required {
		if !have[m] {
			missing = append(missing, m)
		}
	}
	return missing
}
