package ai

import (
	"context"
	"sync"
)

// Overview accumulates token usage across the calls made with one context.
// Drivers add to it when it is present; callers read it afterwards.
type Overview struct {
	mu         sync.Mutex
	requests   int
	totalUsage Usage
}

type overviewKey struct{}

// OverviewFromContext returns the Overview attached to ctx, or nil.
func OverviewFromContext(ctx context.Context) *Overview {
	if ctx == nil {
		return nil
	}
	overview, _ := ctx.Value(overviewKey{}).(*Overview)
	return overview
}

// ToContext attaches o to ctx.
func (o *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewKey{}, o)
}

// Record counts one completed request and adds its usage, if any.
func (o *Overview) Record(usage *Usage) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests++
	if usage == nil {
		return
	}
	o.totalUsage.PromptTokens += usage.PromptTokens
	o.totalUsage.CompletionTokens += usage.CompletionTokens
	o.totalUsage.TotalTokens += usage.TotalTokens
}

// Requests returns the number of recorded requests.
func (o *Overview) Requests() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests
}

// TotalUsage returns the summed usage.
func (o *Overview) TotalUsage() Usage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalUsage
}
