package middleware

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs the provider, model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and, for streams, the number of
	// skipped payloads.
	LogLevelStandard

	// LogLevelVerbose adds the first message and the response content, each
	// truncated to 500 characters.
	//
	// WARNING: raw prompt and response text may contain user data. Use it for
	// local debugging only.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every chat call through logger. For streams the
// completion entry is written once the iterator finishes or is abandoned.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) Config {
	if logger == nil {
		logger = slog.Default()
	}
	return Config{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildSendLogging(logger *slog.Logger, level LogLevel) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) (*ai.Response, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("provider", request.Provider.String()),
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", responseAttrs(request, response, elapsed, level)...)
			return response, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request Request) (*ai.DeltaStream, error) {
			logger.InfoContext(ctx, "llm stream", requestAttrs(request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("provider", request.Provider.String()),
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			return wrapStreamWithLogging(ctx, stream, logger, request, level, start), nil
		}
	}
}

func wrapStreamWithLogging(ctx context.Context, stream *ai.DeltaStream, logger *slog.Logger, request Request, level LogLevel, start time.Time) *ai.DeltaStream {
	return stream.Wrap(func(source iter.Seq2[ai.ContentDelta, error]) iter.Seq2[ai.ContentDelta, error] {
		return func(yield func(ai.ContentDelta, error) bool) {
			var content strings.Builder
			deltas := 0

			for delta, err := range source {
				if err != nil {
					logger.ErrorContext(ctx, "llm stream failed",
						slog.String("provider", request.Provider.String()),
						slog.String("model", request.Model),
						slog.Duration("duration", time.Since(start)),
						slog.String("error", err.Error()),
					)
					yield(delta, err)
					return
				}

				deltas++
				if level >= LogLevelVerbose {
					content.WriteString(delta.Content)
				}

				if !yield(delta, nil) {
					logger.InfoContext(ctx, "llm stream abandoned",
						slog.String("provider", request.Provider.String()),
						slog.String("model", request.Model),
						slog.Duration("duration", time.Since(start)),
						slog.Int("deltas", deltas),
					)
					return
				}
			}

			attrs := []any{
				slog.String("provider", request.Provider.String()),
				slog.String("model", request.Model),
				slog.Duration("duration", time.Since(start)),
				slog.Int("deltas", deltas),
			}
			if level >= LogLevelStandard {
				attrs = append(attrs, slog.Int("skipped", stream.Skipped()))
			}
			if level >= LogLevelVerbose {
				attrs = append(attrs, slog.String("response_content", utils.TruncateString(content.String(), truncateLen)))
			}
			logger.InfoContext(ctx, "llm stream completed", attrs...)
		}
	})
}

func requestAttrs(request Request, level LogLevel) []any {
	attrs := []any{
		slog.String("provider", request.Provider.String()),
		slog.String("model", request.Model),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", utils.TruncateString(first.Content, truncateLen)),
		)
	}

	return attrs
}

func responseAttrs(request Request, response *ai.Response, elapsed time.Duration, level LogLevel) []any {
	model := response.Model
	if model == "" {
		model = request.Model
	}
	attrs := []any{
		slog.String("provider", request.Provider.String()),
		slog.String("model", model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}

	return attrs
}
