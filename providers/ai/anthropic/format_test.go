package anthropic

import (
	"testing"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// TestEncodeStored_Image verifies the tagged image text and caption.
func TestEncodeStored_Image(t *testing.T) {
	stored := Formatter{}.EncodeStored(ai.Message{
		Role: ai.RoleUser, Type: ai.ContentImage, Content: "https://img/cat.png",
		Metadata: map[string]any{"caption": "my cat"},
	}).(message)

	if stored.Content != "<image>https://img/cat.png</image>\nmy cat" {
		t.Errorf("unexpected content %q", stored.Content)
	}
}

// TestEncodeStored_Audio verifies the audio tag only appears with a format.
func TestEncodeStored_Audio(t *testing.T) {
	withFormat := Formatter{}.EncodeStored(ai.Message{
		Role: ai.RoleUser, Type: ai.ContentAudio, Content: "UklGR",
		Metadata: map[string]any{"format": "wav", "transcript": "hello"},
	}).(message)
	if withFormat.Content != "<audio format=\"wav\">UklGR</audio>\nhello" {
		t.Errorf("unexpected content %q", withFormat.Content)
	}

	transcriptOnly := Formatter{}.EncodeStored(ai.Message{
		Role: ai.RoleUser, Type: ai.ContentAudio, Content: "UklGR",
		Metadata: map[string]any{"transcript": "hello"},
	}).(message)
	if transcriptOnly.Content != "hello" {
		t.Errorf("expected transcript only, got %q", transcriptOnly.Content)
	}
}

// TestEncodeStored_DescriptionOverride verifies the description wins.
func TestEncodeStored_DescriptionOverride(t *testing.T) {
	stored := Formatter{}.EncodeStored(ai.Message{
		Role: ai.RoleAssistant, Type: ai.ContentImage, Content: "https://img/cat.png",
		Metadata: map[string]any{"description": "a cat"},
	}).(message)
	if stored.Content != "a cat" || stored.Role != "assistant" {
		t.Errorf("unexpected stored message %+v", stored)
	}
}

// TestFormatMessages_SystemKept verifies system messages are never dropped.
func TestFormatMessages_SystemKept(t *testing.T) {
	formatted := Formatter{}.FormatMessages([]ai.Message{
		{Role: ai.RoleSystem, Content: "rules"},
		{Role: ai.RoleAssistant, Content: "ok"},
	}).([]message)

	if len(formatted) != 2 || formatted[0].Content != "rules" || formatted[0].Role != "user" {
		t.Errorf("unexpected messages %+v", formatted)
	}
	if formatted[1].Role != "assistant" {
		t.Errorf("expected assistant role unchanged, got %q", formatted[1].Role)
	}
}

// TestParseMessage_RoundTrip verifies text and tagged media survive a round
// trip through the stored shape.
func TestParseMessage_RoundTrip(t *testing.T) {
	cases := []ai.Message{
		{Role: ai.RoleUser, Type: ai.ContentText, Content: "plain"},
		{Role: ai.RoleUser, Type: ai.ContentImage, Content: "https://img/x.png", Metadata: map[string]any{"caption": "x"}},
		{Role: ai.RoleUser, Type: ai.ContentAudio, Content: "AAA", Metadata: map[string]any{"format": "mp3"}},
	}
	for _, original := range cases {
		parsed, err := Formatter{}.ParseMessage(Formatter{}.EncodeStored(original))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if parsed.Type != original.Type || parsed.Content != original.Content || parsed.Role != original.Role {
			t.Errorf("round trip mismatch: %+v vs %+v", parsed, original)
		}
	}
}

// TestParseMessage_Blocks verifies response-style content blocks are joined.
func TestParseMessage_Blocks(t *testing.T) {
	parsed, err := Formatter{}.ParseMessage(map[string]any{
		"role":    "assistant",
		"content": []any{map[string]any{"type": "text", "text": "a"}, map[string]any{"type": "text", "text": "b"}},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Content != "a\nb" {
		t.Errorf("unexpected content %q", parsed.Content)
	}
}

// TestFormatOptions_Renames verifies the whitelist and the stop rename.
func TestFormatOptions_Renames(t *testing.T) {
	options := FormatOptions(ai.Options{"stop": []string{"\n\nHuman:"}, "top_k": "10", "n": 3}, ai.ProviderConfig{Temperature: 0.5})

	if len(options.StopSequences) != 1 || options.StopSequences[0] != "\n\nHuman:" {
		t.Errorf("unexpected stop sequences %v", options.StopSequences)
	}
	if options.TopK == nil || *options.TopK != 10 {
		t.Errorf("unexpected top_k %v", options.TopK)
	}
	if options.MaxTokens != 1000 {
		t.Errorf("expected max_tokens fallback 1000, got %d", options.MaxTokens)
	}
	if *options.Temperature != 0.5 {
		t.Errorf("expected config temperature, got %v", *options.Temperature)
	}
}
