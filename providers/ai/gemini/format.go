package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

const defaultImageMimeType = "image/jpeg"

// Formatter converts messages to Gemini contents. Gemini knows only the user
// and model roles.
type Formatter struct{}

var _ ai.Formatter = Formatter{}

func (Formatter) Provider() ai.Provider {
	return ai.ProviderGemini
}

// StorageRole persists assistant turns under Gemini's model role.
func (Formatter) StorageRole(role ai.MessageRole) ai.MessageRole {
	if role == ai.RoleAssistant {
		return ai.RoleModel
	}
	return role
}

func (f Formatter) FormatMessages(messages []ai.Message) any {
	return f.formatRequest(messages)
}

func (f Formatter) formatRequest(messages []ai.Message) []content {
	out := make([]content, 0, len(messages))
	for _, message := range messages {
		out = append(out, content{Role: requestRole(message.Role), Parts: requestParts(message)})
	}
	return out
}

// requestRole maps system and assistant to model; anything unknown is sent
// as user.
func requestRole(role ai.MessageRole) string {
	switch role {
	case ai.RoleSystem, ai.RoleAssistant, ai.RoleModel:
		return string(ai.RoleModel)
	default:
		return string(ai.RoleUser)
	}
}

// requestParts converts explicit parts when present. Image URLs become
// inline_data when they are data URIs and text otherwise, so no part is
// dropped. The result is never nil.
func requestParts(message ai.Message) []part {
	if len(message.Parts) == 0 {
		return storedParts(message)
	}
	parts := make([]part, 0, len(message.Parts))
	for _, p := range message.Parts {
		switch {
		case p.Text != "":
			parts = append(parts, textPart(p.Text))
		case p.InputAudio != nil:
			parts = append(parts, part{InlineData: &inlineData{MimeType: "audio/" + p.InputAudio.Format, Data: p.InputAudio.Data}})
		case p.ImageURL != nil && p.ImageURL.URL != "":
			parts = append(parts, imageURLPart(p.ImageURL.URL))
		}
	}
	return parts
}

// imageURLPart decodes "data:<mime>;base64,<data>" into inline_data. Any
// other URL is passed as text.
func imageURLPart(url string) part {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return textPart(url)
	}
	header, data, ok := strings.Cut(rest, ",")
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !ok || !isBase64 || data == "" {
		return textPart(url)
	}
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	return part{InlineData: &inlineData{MimeType: mimeType, Data: data}}
}

// EncodeStored renders a record as {role, parts}. Text never has a content
// key; images become inline_data; audio falls back to its transcript. The
// model role reads back as assistant.
func (Formatter) EncodeStored(message ai.Message) any {
	return content{Role: string(readRole(message.Role)), Parts: storedParts(message)}
}

func readRole(role ai.MessageRole) ai.MessageRole {
	if role == ai.RoleModel {
		return ai.RoleAssistant
	}
	return role
}

func storedParts(message ai.Message) []part {
	contentType := message.Type.TypeOrText()
	if contentType == ai.ContentText {
		return []part{textPart(message.Content)}
	}
	if description := message.MetaString(ai.MetaDescription); description != "" {
		return []part{textPart(description)}
	}

	switch contentType {
	case ai.ContentImage:
		mimeType := message.MetaString(ai.MetaMimeType)
		if mimeType == "" {
			mimeType = defaultImageMimeType
		}
		return []part{{InlineData: &inlineData{MimeType: mimeType, Data: message.Content}}}
	case ai.ContentAudio:
		if transcript := message.MetaString(ai.MetaTranscript); transcript != "" {
			return []part{textPart(transcript)}
		}
		return []part{}
	default:
		return []part{textPart(message.Content)}
	}
}

// ParseMessage maps {role, parts} back to a generic message, with model
// turns as assistant.
func (Formatter) ParseMessage(native any) (ai.Message, error) {
	data, err := json.Marshal(native)
	if err != nil {
		return ai.Message{}, fmt.Errorf("gemini: parse message: %w", err)
	}
	var raw content
	if err := json.Unmarshal(data, &raw); err != nil {
		return ai.Message{}, fmt.Errorf("gemini: parse message: %w", err)
	}

	message := ai.Message{Role: readRole(ai.MessageRole(raw.Role)), Type: ai.ContentText}
	if len(raw.Parts) == 1 && raw.Parts[0].InlineData != nil {
		message.Type = ai.ContentImage
		message.Content = raw.Parts[0].InlineData.Data
		message.Metadata = map[string]any{ai.MetaMimeType: raw.Parts[0].InlineData.MimeType}
		return message, nil
	}

	var texts []string
	for _, p := range raw.Parts {
		if p.Text != nil {
			texts = append(texts, *p.Text)
		}
	}
	message.Content = strings.Join(texts, "\n")
	return message, nil
}

// FormatOptions builds generationConfig. max_tokens, top_p, top_k, stop and
// candidate_count are renamed to their camelCase API names.
func FormatOptions(options ai.Options, cfg ai.ProviderConfig) GenerationConfig {
	config := GenerationConfig{
		Temperature:     ai.FloatOr(options, "temperature", cfg.Temperature),
		MaxOutputTokens: ai.IntOr(options, "max_tokens", cfg.MaxTokens),
		TopP:            ai.FloatPtr(options, "top_p"),
		TopK:            ai.IntPtr(options, "top_k"),
		CandidateCount:  ai.IntPtr(options, "candidate_count"),
	}
	if stop, ok := options.Strings("stop"); ok {
		config.StopSequences = stop
	}
	return config
}
