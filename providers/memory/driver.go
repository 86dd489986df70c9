package memory

import (
	"context"
	"sync"

	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

// Driver reads and writes the history of one conversation owner in the wire
// shape of one provider. The owner is set with SetParent; until then every
// operation fails with a *ScopeNotSetError.
//
// A Driver is safe for concurrent use, but SetParent changes the scope for
// every caller sharing the instance. Request handlers should use WithParent.
type Driver struct {
	formatter ai.Formatter
	store     Store

	mu          sync.RWMutex
	parentClass string
	parentID    string
}

// NewDriver returns a driver without a scope.
func NewDriver(formatter ai.Formatter, store Store) *Driver {
	return &Driver{formatter: formatter, store: store}
}

// Provider returns the provider whose shapes the driver produces.
func (d *Driver) Provider() ai.Provider {
	return d.formatter.Provider()
}

// SetParent binds the driver to the conversation owned by (class, id).
func (d *Driver) SetParent(class, id string) {
	d.mu.Lock()
	d.parentClass = class
	d.parentID = id
	d.mu.Unlock()
}

// WithParent returns a copy bound to (class, id). The copy shares the store
// and formatter; d is left unchanged.
func (d *Driver) WithParent(class, id string) *Driver {
	scoped := NewDriver(d.formatter, d.store)
	scoped.SetParent(class, id)
	return scoped
}

// Parent returns the current owner and whether one is set.
func (d *Driver) Parent() (class, id string, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.parentClass, d.parentID, d.parentClass != "" && d.parentID != ""
}

func (d *Driver) scope(op string) (Scope, error) {
	class, id, ok := d.Parent()
	if !ok {
		return Scope{}, &ScopeNotSetError{Op: op}
	}
	return Scope{ParentClass: class, ParentID: id, Driver: d.Provider()}, nil
}

// AddOption customises a record before it is stored.
type AddOption func(*Record)

// WithType sets the content type. Records default to text.
func WithType(contentType ai.ContentType) AddOption {
	return func(r *Record) {
		r.Type = contentType
	}
}

// WithMetadata attaches free-form metadata such as description or format.
func WithMetadata(metadata map[string]any) AddOption {
	return func(r *Record) {
		r.Metadata = cloneMetadata(metadata)
	}
}

// WithMessageID records a caller supplied message identifier.
func WithMessageID(id string) AddOption {
	return func(r *Record) {
		r.MessageID = id
	}
}

// AddMessage appends one turn to the current scope. The role is normalised
// by the provider formatter before it is stored.
func (d *Driver) AddMessage(ctx context.Context, role ai.MessageRole, content string, opts ...AddOption) error {
	scope, err := d.scope("add message")
	if err != nil {
		return err
	}

	record := &Record{
		ParentClass: scope.ParentClass,
		ParentID:    scope.ParentID,
		Role:        d.formatter.StorageRole(role),
		Content:     content,
		Type:        ai.ContentText,
		Driver:      scope.Driver,
	}
	for _, opt := range opts {
		opt(record)
	}
	record.Type = record.Type.TypeOrText()

	if err := d.store.Create(ctx, record); err != nil {
		return err
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryAppend, append(scopeAttrs(scope),
			observability.String(observability.AttrMemoryRole, string(record.Role)),
			observability.String(observability.AttrMemoryType, string(record.Type)),
		)...)
	}
	return nil
}

func (d *Driver) AddUserMessage(ctx context.Context, content string, opts ...AddOption) error {
	return d.AddMessage(ctx, ai.RoleUser, content, opts...)
}

func (d *Driver) AddAssistantMessage(ctx context.Context, content string, opts ...AddOption) error {
	return d.AddMessage(ctx, ai.RoleAssistant, content, opts...)
}

func (d *Driver) AddSystemMessage(ctx context.Context, content string, opts ...AddOption) error {
	return d.AddMessage(ctx, ai.RoleSystem, content, opts...)
}

// Messages returns the scope's history, oldest first, each turn in the
// provider's stored shape.
func (d *Driver) Messages(ctx context.Context) ([]any, error) {
	records, err := d.query(ctx, "messages")
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(records))
	for _, record := range records {
		out = append(out, d.formatter.EncodeStored(record.Message()))
	}
	return out, nil
}

// History returns the scope's history as generic messages, ready to be sent
// to a chat driver.
func (d *Driver) History(ctx context.Context) ([]ai.Message, error) {
	records, err := d.query(ctx, "history")
	if err != nil {
		return nil, err
	}
	out := make([]ai.Message, 0, len(records))
	for _, record := range records {
		out = append(out, record.Message())
	}
	return out, nil
}

func (d *Driver) query(ctx context.Context, op string) ([]Record, error) {
	scope, err := d.scope(op)
	if err != nil {
		return nil, err
	}
	records, err := d.store.Query(ctx, scope)
	if err != nil {
		return nil, err
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryQuery, append(scopeAttrs(scope),
			observability.Int(observability.AttrMemoryCount, len(records)))...)
	}
	return records, nil
}

// Clear deletes the scope's history for this provider only.
func (d *Driver) Clear(ctx context.Context) error {
	scope, err := d.scope("clear")
	if err != nil {
		return err
	}
	deleted, err := d.store.Delete(ctx, scope)
	if err != nil {
		return err
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear, append(scopeAttrs(scope),
			observability.Int64(observability.AttrMemoryCount, deleted))...)
	}
	return nil
}

func scopeAttrs(scope Scope) []observability.Attribute {
	return []observability.Attribute{
		observability.String(observability.AttrMemoryDriver, scope.Driver.String()),
		observability.String(observability.AttrMemoryParentClass, scope.ParentClass),
		observability.String(observability.AttrMemoryParentID, scope.ParentID),
	}
}
