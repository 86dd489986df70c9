package ai

/*
	##### PROVIDER INPUT #####
*/

// Message is one provider-neutral conversation turn.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// Parts carries structured multimodal content. When empty, Content is the
	// whole payload.
	Parts []ContentPart `json:"parts,omitempty"`

	Type     ContentType    `json:"type,omitempty"`     // Defaults to text when empty
	Metadata map[string]any `json:"metadata,omitempty"` // Free-form; description, detail, format, mime_type, image, audio, video
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // auto, low or high
}

type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format,omitempty"`
}

// ProviderConfig holds the per-provider settings a driver is built from.
type ProviderConfig struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	Model          string  `mapstructure:"model" yaml:"model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	OrganizationID string  `mapstructure:"organization_id" yaml:"organization_id,omitempty"`
	ProjectID      string  `mapstructure:"project_id" yaml:"project_id,omitempty"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Response is the normalised result of a non-streaming call.
type Response struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	Model   string      `json:"model"`
	Usage   *Usage      `json:"usage,omitempty"`
}

// ContentDelta is one streamed chunk. Concatenating Content across a stream
// reconstructs the full completion.
type ContentDelta struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleModel     MessageRole = "model" // Gemini's native assistant role
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
)

// TypeOrText returns t, or ContentText when t is empty.
func (t ContentType) TypeOrText() ContentType {
	if t == "" {
		return ContentText
	}
	return t
}

type PartType string

const (
	PartText       PartType = "text"
	PartImageURL   PartType = "image_url"
	PartInputAudio PartType = "input_audio"
)

// MetaString returns metadata[key] when it is a non-empty string.
func (m Message) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	value, ok := m.Metadata[key].(string)
	if !ok {
		return ""
	}
	return value
}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// WithDefaults fills the unset fields of c. A zero temperature counts as
// unset; pass temperature 0 through Options to request it explicitly.
func (c ProviderConfig) WithDefaults(model string) ProviderConfig {
	if c.Model == "" {
		c.Model = model
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}
