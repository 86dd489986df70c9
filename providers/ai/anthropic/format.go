package anthropic

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Formatter renders messages as plain-text Messages API entries. Media is
// inlined as <image> and <audio> tags.
type Formatter struct{}

var _ ai.Formatter = Formatter{}

var (
	imageTag = regexp.MustCompile(`(?s)^<image>(.*?)</image>\n?(.*)$`)
	audioTag = regexp.MustCompile(`(?s)^<audio format="([^"]*)">(.*?)</audio>\n?(.*)$`)
)

func (Formatter) Provider() ai.Provider {
	return ai.ProviderClaude
}

// StorageRole keeps roles as they are; the system mapping only applies to
// outgoing requests.
func (Formatter) StorageRole(role ai.MessageRole) ai.MessageRole {
	return role
}

func (f Formatter) FormatMessages(messages []ai.Message) any {
	return f.formatRequest(messages)
}

func (f Formatter) formatRequest(messages []ai.Message) []message {
	out := make([]message, 0, len(messages))
	for _, m := range messages {
		out = append(out, message{Role: requestRole(m.Role), Content: requestText(m)})
	}
	return out
}

// requestRole sends system instructions as user turns.
func requestRole(role ai.MessageRole) string {
	if role == ai.RoleSystem {
		return string(ai.RoleUser)
	}
	return string(role)
}

func requestText(m ai.Message) string {
	if len(m.Parts) == 0 {
		return storedText(m)
	}
	var builder strings.Builder
	for _, part := range m.Parts {
		switch {
		case part.ImageURL != nil:
			fmt.Fprintf(&builder, "<image>%s</image>\n", part.ImageURL.URL)
		case part.InputAudio != nil:
			fmt.Fprintf(&builder, "<audio format=%q>%s</audio>\n", part.InputAudio.Format, part.InputAudio.Data)
		case part.Text != "":
			builder.WriteString(part.Text)
			builder.WriteString("\n")
		}
	}
	return strings.TrimSpace(builder.String())
}

// EncodeStored renders a history record as {role, content} with content
// always a string.
func (Formatter) EncodeStored(m ai.Message) any {
	return message{Role: string(m.Role), Content: storedText(m)}
}

func storedText(m ai.Message) string {
	contentType := m.Type.TypeOrText()
	if contentType == ai.ContentText {
		return m.Content
	}
	if description := m.MetaString(ai.MetaDescription); description != "" {
		return description
	}

	var builder strings.Builder
	switch contentType {
	case ai.ContentImage:
		fmt.Fprintf(&builder, "<image>%s</image>\n", m.Content)
		if caption := m.MetaString(ai.MetaCaption); caption != "" {
			builder.WriteString(caption + "\n")
		}
	case ai.ContentAudio:
		if format := m.MetaString(ai.MetaFormat); format != "" {
			fmt.Fprintf(&builder, "<audio format=\"%s\">%s</audio>\n", format, m.Content)
		}
		if transcript := m.MetaString(ai.MetaTranscript); transcript != "" {
			builder.WriteString(transcript + "\n")
		}
	default:
		builder.WriteString(m.Content)
	}
	return strings.TrimSpace(builder.String())
}

// ParseMessage accepts a stored message, a decoded map with string content,
// or a response-style message whose content is a list of text blocks. Image
// and audio tags are lifted back into typed messages.
func (Formatter) ParseMessage(native any) (ai.Message, error) {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	data, err := json.Marshal(native)
	if err != nil {
		return ai.Message{}, fmt.Errorf("anthropic: parse message: %w", err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ai.Message{}, fmt.Errorf("anthropic: parse message: %w", err)
	}

	result := ai.Message{Role: ai.MessageRole(raw.Role), Type: ai.ContentText}
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return result, nil
	}

	var text string
	if err := json.Unmarshal(raw.Content, &text); err != nil {
		var blocks []contentBlock
		if blockErr := json.Unmarshal(raw.Content, &blocks); blockErr != nil {
			return ai.Message{}, fmt.Errorf("anthropic: parse message content: %w", blockErr)
		}
		var texts []string
		for _, block := range blocks {
			if block.Type == "text" {
				texts = append(texts, block.Text)
			}
		}
		text = strings.Join(texts, "\n")
	}

	if match := imageTag.FindStringSubmatch(text); match != nil {
		result.Type = ai.ContentImage
		result.Content = match[1]
		if caption := strings.TrimSpace(match[2]); caption != "" {
			result.Metadata = map[string]any{ai.MetaCaption: caption}
		}
		return result, nil
	}
	if match := audioTag.FindStringSubmatch(text); match != nil {
		result.Type = ai.ContentAudio
		result.Content = match[2]
		result.Metadata = map[string]any{ai.MetaFormat: match[1]}
		if transcript := strings.TrimSpace(match[3]); transcript != "" {
			result.Metadata[ai.MetaTranscript] = transcript
		}
		return result, nil
	}

	result.Content = text
	return result, nil
}

// FormatOptions keeps temperature, max_tokens, top_p, top_k and stop, renaming
// stop to stop_sequences. max_tokens falls back to cfg and then to 1000.
func FormatOptions(options ai.Options, cfg ai.ProviderConfig) RequestOptions {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ai.DefaultMaxTokens
	}
	if v, ok := options.Int("max_tokens"); ok && v > 0 {
		maxTokens = v
	}

	out := RequestOptions{
		Temperature: ai.FloatOr(options, "temperature", cfg.Temperature),
		MaxTokens:   maxTokens,
		TopP:        ai.FloatPtr(options, "top_p"),
		TopK:        ai.IntPtr(options, "top_k"),
	}
	if stop, ok := options.Strings("stop"); ok {
		out.StopSequences = stop
	}
	return out
}
