package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Formatter maps generic messages to the chat completions shapes. Roles pass
// through unchanged.
type Formatter struct{}

var _ ai.Formatter = Formatter{}

func (Formatter) Provider() ai.Provider {
	return ai.ProviderOpenAI
}

func (Formatter) StorageRole(role ai.MessageRole) ai.MessageRole {
	return role
}

// FormatMessages returns the request messages array.
func (f Formatter) FormatMessages(messages []ai.Message) any {
	return f.formatRequest(messages)
}

func (f Formatter) formatRequest(messages []ai.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, message := range messages {
		out = append(out, chatMessage{Role: string(message.Role), Content: requestContent(message)})
	}
	return out
}

// requestContent prefers explicit parts. Non-text messages use
// metadata.description when set, then the metadata media lists, then the
// stored shape, so replayed history keeps its audio and image references.
func requestContent(message ai.Message) any {
	if len(message.Parts) > 0 {
		return convertParts(message.Parts)
	}
	if message.Type.TypeOrText() == ai.ContentText {
		return message.Content
	}
	if description := message.MetaString(ai.MetaDescription); description != "" {
		return description
	}
	if parts := ai.MediaParts(message); hasMedia(parts) {
		return convertParts(parts)
	}
	return storedContent(message)
}

func hasMedia(parts []ai.ContentPart) bool {
	for _, part := range parts {
		if part.Type != ai.PartText {
			return true
		}
	}
	return false
}

func convertParts(parts []ai.ContentPart) []contentPart {
	out := make([]contentPart, 0, len(parts))
	for _, part := range parts {
		converted := contentPart{Type: string(part.Type), Text: part.Text}
		if part.ImageURL != nil {
			converted.ImageURL = &imageURL{URL: part.ImageURL.URL, Detail: part.ImageURL.Detail}
		}
		if part.InputAudio != nil {
			converted.InputAudio = &inputAudio{Data: part.InputAudio.Data, Format: part.InputAudio.Format}
		}
		out = append(out, converted)
	}
	return out
}

// EncodeStored renders a history record as {role, content}. Non-text records
// become a content list unless metadata.description replaces the media.
func (Formatter) EncodeStored(message ai.Message) any {
	return chatMessage{Role: string(message.Role), Content: storedContent(message)}
}

func storedContent(message ai.Message) any {
	contentType := message.Type.TypeOrText()
	if contentType == ai.ContentText {
		return message.Content
	}
	if description := message.MetaString(ai.MetaDescription); description != "" {
		return description
	}

	switch contentType {
	case ai.ContentImage:
		detail := message.MetaString(ai.MetaDetail)
		if detail == "" {
			detail = "auto"
		}
		return []contentPart{{Type: "image_url", ImageURL: &imageURL{URL: message.Content, Detail: detail}}}
	case ai.ContentAudio:
		return []contentPart{{Type: "audio", Audio: &audioRef{URL: message.Content, Format: message.MetaString(ai.MetaFormat)}}}
	case ai.ContentVideo:
		return convertParts(ai.VideoParts(message))
	}
	return []contentPart{}
}

// ParseMessage accepts a chatMessage or any value with the same JSON shape,
// such as a decoded map.
func (Formatter) ParseMessage(native any) (ai.Message, error) {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := remarshal(native, &raw); err != nil {
		return ai.Message{}, fmt.Errorf("openai: parse message: %w", err)
	}

	message := ai.Message{Role: ai.MessageRole(raw.Role), Type: ai.ContentText}
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return message, nil
	}

	var text string
	if err := json.Unmarshal(raw.Content, &text); err == nil {
		message.Content = text
		return message, nil
	}

	var parts []contentPart
	if err := json.Unmarshal(raw.Content, &parts); err != nil {
		return ai.Message{}, fmt.Errorf("openai: parse message content: %w", err)
	}
	return messageFromParts(message, parts), nil
}

func messageFromParts(message ai.Message, parts []contentPart) ai.Message {
	if len(parts) == 1 {
		switch {
		case parts[0].ImageURL != nil:
			message.Type = ai.ContentImage
			message.Content = parts[0].ImageURL.URL
			message.Metadata = map[string]any{ai.MetaDetail: parts[0].ImageURL.Detail}
			return message
		case parts[0].Audio != nil:
			message.Type = ai.ContentAudio
			message.Content = parts[0].Audio.URL
			if parts[0].Audio.Format != "" {
				message.Metadata = map[string]any{ai.MetaFormat: parts[0].Audio.Format}
			}
			return message
		}
	}

	var text []string
	for _, part := range parts {
		generic := ai.ContentPart{Type: ai.PartType(part.Type), Text: part.Text}
		if part.ImageURL != nil {
			generic.ImageURL = &ai.ImageURL{URL: part.ImageURL.URL, Detail: part.ImageURL.Detail}
		}
		if part.InputAudio != nil {
			generic.InputAudio = &ai.InputAudio{Data: part.InputAudio.Data, Format: part.InputAudio.Format}
		}
		if part.Text != "" {
			text = append(text, part.Text)
		}
		message.Parts = append(message.Parts, generic)
	}
	message.Content = strings.Join(text, "\n")
	return message
}

// FormatOptions keeps the whitelisted options and coerces their types.
// temperature and max_tokens fall back to cfg.
func FormatOptions(options ai.Options, cfg ai.ProviderConfig) RequestOptions {
	out := RequestOptions{
		Temperature:      ai.FloatOr(options, "temperature", cfg.Temperature),
		TopP:             ai.FloatPtr(options, "top_p"),
		N:                ai.IntPtr(options, "n"),
		MaxTokens:        ai.IntOr(options, "max_tokens", cfg.MaxTokens),
		PresencePenalty:  ai.FloatPtr(options, "presence_penalty"),
		FrequencyPenalty: ai.FloatPtr(options, "frequency_penalty"),
	}
	if stop, ok := options.Strings("stop"); ok {
		out.Stop = stop
	}
	if bias, ok := options.FloatMap("logit_bias"); ok {
		out.LogitBias = bias
	}
	if user, ok := options.String("user"); ok {
		out.User = user
	}
	return out
}

func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
