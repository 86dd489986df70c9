package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

/*
	MESSAGES API - REQUEST TYPES
*/

type messagesRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`

	RequestOptions
}

// RequestOptions is the whitelisted, typed subset of ai.Options accepted by
// the Messages API. max_tokens is mandatory there, so it is always set.
type RequestOptions struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     int      `json:"max_tokens"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// message is a request or stored message. Content is always plain text; media
// is inlined as tagged text.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

/*
	MESSAGES API - RESPONSE TYPES
*/

type messagesResponse struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   *usage         `json:"usage,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (r *messagesResponse) toGeneric() *ai.Response {
	response := &ai.Response{
		Role:    ai.RoleAssistant,
		Content: r.Content[0].Text,
		Model:   r.Model,
	}
	if r.Usage != nil {
		response.Usage = &ai.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		}
	}
	return response
}

/*
	STREAMING EVENTS
*/

type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Model string `json:"model"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
}

// deltaExtractor remembers the model announced by message_start. Each
// stream gets its own instance.
type deltaExtractor struct {
	model string
}

func (e *deltaExtractor) extract(payload string) (ai.ContentDelta, error) {
	// SSE framing lines ride along when the server sends event names.
	if strings.HasPrefix(payload, "event:") || strings.HasPrefix(payload, ":") {
		return ai.ContentDelta{}, ai.ErrNoDelta
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ai.ContentDelta{}, err
	}

	switch event.Type {
	case "message_start":
		if event.Message != nil && event.Message.Model != "" {
			e.model = event.Message.Model
		}
	case "content_block_delta":
		if event.Delta != nil {
			return ai.ContentDelta{Content: event.Delta.Text, Model: e.model}, nil
		}
	}
	return ai.ContentDelta{}, ai.ErrNoDelta
}
