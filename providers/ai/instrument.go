package ai

import (
	"context"
	"time"

	"github.com/bupple-inc/ai-engine/providers/observability"
)

// RequestObservation tracks one provider call for the observer found in the
// context. All methods are no-ops when no observer is attached.
type RequestObservation struct {
	ctx      context.Context
	observer observability.Provider
	span     observability.Span
	provider Provider
	model    string
	start    time.Time
}

// ObserveRequest opens a span for a provider call and returns the context the
// call should use.
func ObserveRequest(ctx context.Context, provider Provider, model string, messageCount int, streaming bool) (context.Context, *RequestObservation) {
	observation := &RequestObservation{
		ctx:      ctx,
		observer: observability.ObserverFromContext(ctx),
		provider: provider,
		model:    model,
		start:    time.Now(),
	}
	if observation.observer == nil {
		return ctx, observation
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, provider.String()),
		observability.String(observability.AttrLLMModel, model),
		observability.Int(observability.AttrRequestMessagesCount, messageCount),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	}

	ctx, observation.span = observation.observer.StartSpan(ctx, observability.SpanLLMRequest, attrs...)
	observation.ctx = ctx
	observation.span.AddEvent(observability.EventLLMRequestStart)
	observation.observer.Debug(ctx, "sending request", attrs...)
	return ctx, observation
}

// End closes the span, recording err or the usage of a successful call.
func (o *RequestObservation) End(err error, usage *Usage) {
	if o == nil || o.observer == nil {
		return
	}

	elapsed := time.Since(o.start)
	status := "success"
	if err != nil {
		status = "error"
	}
	providerAttr := observability.String(observability.AttrLLMProvider, o.provider.String())
	statusAttr := observability.String(observability.AttrStatus, status)

	o.observer.Counter(observability.MetricLLMRequestCount).Add(o.ctx, 1, providerAttr, statusAttr)
	o.observer.Histogram(observability.MetricLLMRequestDuration).Record(o.ctx, elapsed.Seconds(), providerAttr, statusAttr)

	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(observability.StatusError, err.Error())
		o.observer.Error(o.ctx, "request failed", providerAttr, observability.Error(err),
			observability.Duration(observability.AttrHTTPDuration, elapsed))
		o.span.End()
		return
	}

	attrs := []observability.Attribute{providerAttr, observability.Duration(observability.AttrHTTPDuration, elapsed)}
	if usage != nil {
		attrs = append(attrs,
			observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokens),
		)
	}
	o.span.SetAttributes(attrs...)
	o.span.AddEvent(observability.EventLLMRequestEnd)
	o.span.SetStatus(observability.StatusOK, "")
	o.observer.Info(o.ctx, "request completed", attrs...)
	o.span.End()
}
