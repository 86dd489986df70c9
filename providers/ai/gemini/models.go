package gemini

import (
	"encoding/json"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

/*
	GENERATE CONTENT API - REQUEST TYPES
*/

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerationConfig is the whitelisted, renamed subset of ai.Options sent as
// generationConfig.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	CandidateCount  *int     `json:"candidateCount,omitempty"`
}

// content is both the request and the stored message shape.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       *string     `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func textPart(text string) part {
	return part{Text: &text}
}

/*
	GENERATE CONTENT API - RESPONSE TYPES
*/

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

// firstText returns candidates[0].content.parts[0].text.
func (r *generateResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	text := r.Candidates[0].Content.Parts[0].Text
	if text == nil {
		return "", false
	}
	return *text, true
}

func (r *generateResponse) modelOr(fallback string) string {
	if r.ModelVersion != "" {
		return r.ModelVersion
	}
	return fallback
}

func (r *generateResponse) usage() *ai.Usage {
	if r.UsageMetadata == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}

func extractDelta(payload, model string) (ai.ContentDelta, error) {
	var chunk generateResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return ai.ContentDelta{}, err
	}
	text, ok := chunk.firstText()
	if !ok {
		return ai.ContentDelta{}, ai.ErrNoDelta
	}
	return ai.ContentDelta{Content: text, Model: chunk.modelOr(model)}, nil
}
