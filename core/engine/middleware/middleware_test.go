package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/observability"
	"github.com/bupple-inc/ai-engine/providers/observability/slogobs"
)

// ========== Helpers ==========

// fakeDriver records the context it was called with and answers from fixed
// values. sleep delays Send until the context is done or the time passes.
type fakeDriver struct {
	sleep   time.Duration
	err     error
	deltas  []string
	lastCtx context.Context
	calls   []string
}

func (d *fakeDriver) Provider() ai.Provider { return ai.ProviderOpenAI }

func (d *fakeDriver) Config() ai.ProviderConfig { return ai.ProviderConfig{Model: "gpt-4"} }

func (d *fakeDriver) Send(ctx context.Context, _ []ai.Message, _ ai.Options) (*ai.Response, error) {
	d.lastCtx = ctx
	d.calls = append(d.calls, "send")
	if d.sleep > 0 {
		select {
		case <-time.After(d.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return &ai.Response{Role: ai.RoleAssistant, Content: "hello", Model: "gpt-4",
		Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}}, nil
}

func (d *fakeDriver) Stream(ctx context.Context, _ []ai.Message, _ ai.Options) (*ai.DeltaStream, error) {
	d.lastCtx = ctx
	d.calls = append(d.calls, "stream")
	if d.err != nil {
		return nil, d.err
	}
	deltas := d.deltas
	return ai.NewDeltaStream(func(yield func(ai.ContentDelta, error) bool) {
		for _, content := range deltas {
			if err := ctx.Err(); err != nil {
				yield(ai.ContentDelta{}, err)
				return
			}
			if !yield(ai.ContentDelta{Content: content, Model: "gpt-4"}, nil) {
				return
			}
		}
	}), nil
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recorder appends its name on the way in so chain order can be checked.
func recorder(name string, trace *[]string) Config {
	return Config{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request Request) (*ai.Response, error) {
				*trace = append(*trace, name)
				return next(ctx, request)
			}
		},
	}
}

// ========== Chain ==========

// TestWrap_NoMiddlewares verifies that the driver is returned as is.
func TestWrap_NoMiddlewares(t *testing.T) {
	driver := &fakeDriver{}
	if got := Wrap(driver); got != ai.ChatDriver(driver) {
		t.Fatalf("expected the original driver, got %T", got)
	}
}

// TestWrap_Order verifies that the first middleware is the outermost one and
// that a nil Stream entry is bypassed for streams.
func TestWrap_Order(t *testing.T) {
	var trace []string
	driver := &fakeDriver{deltas: []string{"a"}}
	wrapped := Wrap(driver, recorder("first", &trace), recorder("second", &trace))

	if _, err := wrapped.Send(context.Background(), nil, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if strings.Join(trace, ",") != "first,second" {
		t.Errorf("trace = %v", trace)
	}

	trace = nil
	stream, err := wrapped.Stream(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(trace) != 0 {
		t.Errorf("send-only middlewares ran for a stream: %v", trace)
	}
	if wrapped.Provider() != ai.ProviderOpenAI || wrapped.Config().Model != "gpt-4" {
		t.Error("wrapped driver should expose the inner provider and config")
	}
}

// TestWrap_RequestModel verifies the effective model seen by middlewares.
func TestWrap_RequestModel(t *testing.T) {
	var seen []string
	capture := Config{Send: func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) (*ai.Response, error) {
			seen = append(seen, request.Model)
			return next(ctx, request)
		}
	}}
	wrapped := Wrap(&fakeDriver{}, capture)

	_, _ = wrapped.Send(context.Background(), nil, nil)
	_, _ = wrapped.Send(context.Background(), nil, ai.Options{"model": "gpt-4o"})

	if strings.Join(seen, ",") != "gpt-4,gpt-4o" {
		t.Errorf("models = %v", seen)
	}
}

// ========== Timeout ==========

// TestTimeoutMiddleware_SendExceedsTimeout verifies that a slow driver is cut
// off with DeadlineExceeded.
func TestTimeoutMiddleware_SendExceedsTimeout(t *testing.T) {
	wrapped := Wrap(&fakeDriver{sleep: 200 * time.Millisecond}, NewTimeoutMiddleware(20*time.Millisecond))

	_, err := wrapped.Send(context.Background(), nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

// TestTimeoutMiddleware_StreamCancelsAfterIteration verifies that the stream
// context stays live during iteration and is canceled once it ends.
func TestTimeoutMiddleware_StreamCancelsAfterIteration(t *testing.T) {
	driver := &fakeDriver{deltas: []string{"a", "b"}}
	wrapped := Wrap(driver, NewTimeoutMiddleware(time.Minute))

	stream, err := wrapped.Stream(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if driver.lastCtx.Err() != nil {
		t.Fatal("context canceled before iteration")
	}

	resp, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if resp.Content != "ab" {
		t.Errorf("content = %q", resp.Content)
	}
	if !errors.Is(driver.lastCtx.Err(), context.Canceled) {
		t.Errorf("expected canceled context after iteration, got %v", driver.lastCtx.Err())
	}
}

// ========== Logging ==========

// TestLoggingMiddleware_Send_Minimal verifies the minimal attribute set.
func TestLoggingMiddleware_Send_Minimal(t *testing.T) {
	buf := &bytes.Buffer{}
	wrapped := Wrap(&fakeDriver{}, NewLoggingMiddleware(testLogger(buf), LogLevelMinimal))

	_, err := wrapped.Send(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"llm send completed", "provider=openai", "model=gpt-4", "total_tokens=5"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"message_count", "response_content"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("did not expect %q at LogLevelMinimal:\n%s", unwanted, out)
		}
	}
}

// TestLoggingMiddleware_Send_Verbose verifies that content is logged at the
// verbose level.
func TestLoggingMiddleware_Send_Verbose(t *testing.T) {
	buf := &bytes.Buffer{}
	wrapped := Wrap(&fakeDriver{}, NewLoggingMiddleware(testLogger(buf), LogLevelVerbose))

	_, _ = wrapped.Send(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, nil)

	out := buf.String()
	for _, want := range []string{"message_count=1", "first_message_content=hi", "response_content=hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log:\n%s", want, out)
		}
	}
}

// TestLoggingMiddleware_Send_Error verifies the failure entry.
func TestLoggingMiddleware_Send_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	wrapped := Wrap(&fakeDriver{err: errors.New("boom")}, NewLoggingMiddleware(testLogger(buf), LogLevelStandard))

	if _, err := wrapped.Send(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if out := buf.String(); !strings.Contains(out, "llm send failed") || !strings.Contains(out, "error=boom") {
		t.Errorf("unexpected log:\n%s", out)
	}
}

// TestLoggingMiddleware_Stream verifies the completion and abandon entries.
func TestLoggingMiddleware_Stream(t *testing.T) {
	buf := &bytes.Buffer{}
	wrapped := Wrap(&fakeDriver{deltas: []string{"a", "b", "c"}}, NewLoggingMiddleware(testLogger(buf), LogLevelStandard))

	stream, err := wrapped.Stream(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "llm stream completed") || !strings.Contains(out, "deltas=3") || !strings.Contains(out, "skipped=0") {
		t.Errorf("unexpected log:\n%s", out)
	}

	buf.Reset()
	stream, _ = wrapped.Stream(context.Background(), nil, nil)
	for range stream.Iter() {
		break
	}
	if out := buf.String(); !strings.Contains(out, "llm stream abandoned") {
		t.Errorf("expected abandon entry:\n%s", out)
	}
}

// ========== Observer ==========

// TestObserverMiddleware_AttachesObserver verifies that the driver sees the
// observer and that an observer already on the context is kept.
func TestObserverMiddleware_AttachesObserver(t *testing.T) {
	observer := slogobs.New(slogobs.WithOutput(&bytes.Buffer{}))
	driver := &fakeDriver{}
	wrapped := Wrap(driver, NewObserverMiddleware(observer))

	_, _ = wrapped.Send(context.Background(), nil, nil)
	if observability.ObserverFromContext(driver.lastCtx) != observer {
		t.Fatal("driver context has no observer")
	}

	other := slogobs.New(slogobs.WithOutput(&bytes.Buffer{}))
	ctx := observability.ContextWithObserver(context.Background(), other)
	_, _ = wrapped.Stream(ctx, nil, nil)
	if observability.ObserverFromContext(driver.lastCtx) != other {
		t.Fatal("existing observer was replaced")
	}
}
