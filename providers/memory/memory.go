package memory

import (
	"context"
	"time"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Record is one persisted conversation turn. Records are created on append,
// never mutated, and removed only by a scope-wide delete.
type Record struct {
	ID          string         `json:"id"`
	ParentClass string         `json:"parent_class"`
	ParentID    string         `json:"parent_id"`
	MessageID   string         `json:"message_id,omitempty"`
	Role        ai.MessageRole `json:"role"`
	Content     string         `json:"content"`
	Type        ai.ContentType `json:"type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Driver      ai.Provider    `json:"driver"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Message returns the record as a generic message. Turns stored under
// Gemini's model role read back as assistant.
func (r Record) Message() ai.Message {
	role := r.Role
	if role == ai.RoleModel {
		role = ai.RoleAssistant
	}
	return ai.Message{
		Role:     role,
		Content:  r.Content,
		Type:     r.Type.TypeOrText(),
		Metadata: cloneMetadata(r.Metadata),
	}
}

// Scope selects the records of one conversation owner for one provider.
type Scope struct {
	ParentClass string
	ParentID    string
	Driver      ai.Provider
}

// Matches reports whether r belongs to s.
func (s Scope) Matches(r Record) bool {
	return r.ParentClass == s.ParentClass && r.ParentID == s.ParentID && r.Driver == s.Driver
}

// Store persists records. Query returns the records of a scope ordered by
// creation, oldest first; ties on CreatedAt keep insertion order.
//
// Create fills in ID and CreatedAt when they are empty.
type Store interface {
	Create(ctx context.Context, record *Record) error
	Query(ctx context.Context, scope Scope) ([]Record, error)
	Delete(ctx context.Context, scope Scope) (int64, error)
}

// CloneRecord returns a copy of r that shares no maps with it.
func CloneRecord(r Record) Record {
	r.Metadata = cloneMetadata(r.Metadata)
	return r
}

func cloneMetadata(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
