package openai

import (
	"encoding/json"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

/*
	CHAT COMPLETIONS API - REQUEST TYPES
*/

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`

	RequestOptions
}

// RequestOptions is the whitelisted, typed subset of ai.Options sent to
// OpenAI. Its fields are promoted into the request body.
type RequestOptions struct {
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                *int               `json:"n,omitempty"`
	Stop             []string           `json:"stop,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
}

// chatMessage is one entry of the messages array. Content holds either a
// string or a list of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *imageURL   `json:"image_url,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
	Audio      *audioRef   `json:"audio,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format,omitempty"`
}

// audioRef is the stored-audio shape used when replaying history.
type audioRef struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

/*
	CHAT COMPLETIONS API - RESPONSE TYPES
*/

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (r *chatResponse) toGeneric() *ai.Response {
	choice := r.Choices[0]
	role := ai.MessageRole(choice.Message.Role)
	if role == "" {
		role = ai.RoleAssistant
	}
	response := &ai.Response{
		Role:    role,
		Content: choice.Message.Content,
		Model:   r.Model,
	}
	if r.Usage != nil {
		response.Usage = &ai.Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	return response
}

/*
	CHAT COMPLETIONS STREAMING API
*/

type streamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content *string `json:"content,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
}

// extractDelta yields choices[0].delta.content. Chunks without it (role
// preambles, finish markers, usage) carry no delta.
func extractDelta(payload string) (ai.ContentDelta, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return ai.ContentDelta{}, err
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
		return ai.ContentDelta{}, ai.ErrNoDelta
	}
	return ai.ContentDelta{Content: *chunk.Choices[0].Delta.Content, Model: chunk.Model}, nil
}
