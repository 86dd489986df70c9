package ai

import (
	"github.com/spf13/cast"
)

// Metadata keys read by the media helpers and the provider formatters.
const (
	MetaDescription = "description"
	MetaDetail      = "detail"
	MetaFormat      = "format"
	MetaMimeType    = "mime_type"
	MetaImage       = "image"
	MetaAudio       = "audio"
	MetaVideo       = "video"
	MetaCaption     = "caption"
	MetaTranscript  = "transcript"
)

// MediaParts expands a non-text message into content parts using the media
// lists in its metadata. Text messages yield nil.
func MediaParts(message Message) []ContentPart {
	switch message.Type.TypeOrText() {
	case ContentImage:
		return ImageParts(message)
	case ContentAudio:
		return AudioParts(message)
	case ContentVideo:
		return VideoParts(message)
	default:
		return nil
	}
}

// ImageParts turns metadata.image (a list of URLs) into low-detail image parts.
func ImageParts(message Message) []ContentPart {
	var parts []ContentPart
	for _, url := range metaStrings(message.Metadata, MetaImage) {
		parts = append(parts, imagePart(url, "low"))
	}
	return parts
}

// AudioParts returns the message text followed by one input_audio part per
// entry of metadata.audio ({buffer, format}).
func AudioParts(message Message) []ContentPart {
	parts := []ContentPart{{Type: PartText, Text: message.Content}}
	raw, ok := metaValue(message.Metadata, MetaAudio)
	if !ok {
		return parts
	}
	for _, entry := range cast.ToSlice(raw) {
		if part, ok := audioPart(entry); ok {
			parts = append(parts, part)
		}
	}
	return parts
}

// VideoParts returns the message text, one low-detail image part per frame in
// metadata.video.frames, and an input_audio part for metadata.video.audio.
func VideoParts(message Message) []ContentPart {
	parts := []ContentPart{{Type: PartText, Text: message.Content}}
	raw, ok := metaValue(message.Metadata, MetaVideo)
	if !ok {
		return parts
	}
	video := cast.ToStringMap(raw)
	for _, frame := range cast.ToStringSlice(video["frames"]) {
		parts = append(parts, imagePart(frame, "low"))
	}
	if part, ok := audioPart(video["audio"]); ok {
		parts = append(parts, part)
	}
	return parts
}

func imagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url, Detail: detail}}
}

func audioPart(raw any) (ContentPart, bool) {
	if raw == nil {
		return ContentPart{}, false
	}
	audio := cast.ToStringMap(raw)
	data := cast.ToString(audio["buffer"])
	if data == "" {
		return ContentPart{}, false
	}
	return ContentPart{
		Type:       PartInputAudio,
		InputAudio: &InputAudio{Data: data, Format: cast.ToString(audio["format"])},
	}, true
}

func metaValue(metadata map[string]any, key string) (any, bool) {
	if metadata == nil {
		return nil, false
	}
	value, ok := metadata[key]
	return value, ok && value != nil
}

func metaStrings(metadata map[string]any, key string) []string {
	raw, ok := metaValue(metadata, key)
	if !ok {
		return nil
	}
	if single, ok := raw.(string); ok {
		return []string{single}
	}
	return cast.ToStringSlice(raw)
}
