package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

// DeltaStream is a single-use, pull-based stream of content deltas.
//
// Callers must consume it, either by ranging over Iter() (breaking early is
// fine) or by calling Collect(). The HTTP body behind it is only released when
// iteration finishes or stops.
type DeltaStream struct {
	iterator iter.Seq2[ContentDelta, error]
	skipped  int
	source   *DeltaStream
}

// NewDeltaStream wraps a raw iterator.
func NewDeltaStream(iterator iter.Seq2[ContentDelta, error]) *DeltaStream {
	return &DeltaStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for delta, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(delta.Content)
//	}
func (stream *DeltaStream) Iter() iter.Seq2[ContentDelta, error] {
	return stream.iterator
}

// Skipped reports how many malformed payloads were dropped. It is final once
// iteration has finished.
func (stream *DeltaStream) Skipped() int {
	if stream.source != nil {
		return stream.source.Skipped()
	}
	return stream.skipped
}

// Wrap returns a stream whose iterator is built around this one, e.g. to log
// or cancel when iteration ends. Skipped keeps reporting the source count.
func (stream *DeltaStream) Wrap(wrap func(iter.Seq2[ContentDelta, error]) iter.Seq2[ContentDelta, error]) *DeltaStream {
	return &DeltaStream{iterator: wrap(stream.iterator), source: stream}
}

// Collect drains the stream into a Response. A mid-stream error stops
// collection and is returned with the partial response.
func (stream *DeltaStream) Collect() (*Response, error) {
	var builder strings.Builder
	accumulated := &Response{Role: RoleAssistant}

	for delta, err := range stream.iterator {
		if err != nil {
			accumulated.Content = builder.String()
			return accumulated, err
		}
		builder.WriteString(delta.Content)
		if delta.Model != "" {
			accumulated.Model = delta.Model
		}
	}

	accumulated.Content = builder.String()
	return accumulated, nil
}

// ErrNoDelta is returned by a DeltaExtractor for a well-formed payload that
// carries no content, such as a role preamble or a ping.
var ErrNoDelta = errors.New("payload carries no content delta")

// DeltaExtractor decodes one payload. It returns ErrNoDelta to pass over a
// valid payload silently; any other error marks the payload as malformed.
type DeltaExtractor func(payload string) (ContentDelta, error)

// StreamPayloads builds a DeltaStream over an open response body. Each
// payload from reader goes through extract; malformed payloads are skipped
// and counted. When iteration ends the body is closed, the skip count is
// reported to the observer and span found in ctx, and observation is ended
// with the error that stopped the stream, if any.
func StreamPayloads(ctx context.Context, provider Provider, body io.ReadCloser, reader utils.PayloadReader, extract DeltaExtractor, observation *RequestObservation) *DeltaStream {
	stream := &DeltaStream{}

	stream.iterator = func(yield func(ContentDelta, error) bool) {
		defer utils.CloseWithLog(body)

		deltas := 0
		var streamErr error
		defer func() {
			reportStreamFinished(ctx, provider, deltas, stream.skipped)
			observation.End(streamErr, nil)
		}()

		for {
			if err := ctx.Err(); err != nil {
				streamErr = err
				yield(ContentDelta{}, err)
				return
			}

			payload, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				streamErr = fmt.Errorf("%s stream read: %w", provider, err)
				yield(ContentDelta{}, streamErr)
				return
			}

			delta, err := extract(payload)
			if errors.Is(err, ErrNoDelta) {
				continue
			}
			if err != nil {
				stream.skipped++
				continue
			}

			deltas++
			if !yield(delta, nil) {
				return
			}
		}
	}

	return stream
}

func reportStreamFinished(ctx context.Context, provider Provider, deltas, skipped int) {
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, provider.String()),
		observability.Int(observability.AttrStreamDeltas, deltas),
		observability.Int(observability.AttrStreamSkipped, skipped),
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventStreamFinished, attrs...)
	}

	observer := observability.ObserverFromContext(ctx)
	if observer == nil {
		return
	}
	if skipped > 0 {
		observer.Counter(observability.MetricStreamSkipped).Add(ctx, int64(skipped), attrs[0])
		observer.Warn(ctx, "stream payloads skipped", attrs...)
		return
	}
	observer.Debug(ctx, "stream finished", attrs...)
}
