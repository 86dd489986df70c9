// Package middleware wraps chat drivers with cross-cutting behaviour. Each
// New* function returns a [Config] for [Wrap] or engine.WithMiddleware.
//
//   - [NewObserverMiddleware]: puts an observability.Provider on the call
//     context so drivers emit spans, metrics and logs.
//   - [NewTimeoutMiddleware]: per-call deadline, covering the whole stream for
//     streamed calls.
//   - [NewLoggingMiddleware]: slog entries before and after every call.
//
// Middlewares run outermost-first: in
//
//	middleware.Wrap(driver,
//	    middleware.NewTimeoutMiddleware(30*time.Second),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
//
// a request travels Timeout → Logging → driver and the response comes back in
// reverse. Nothing here retries a failed call.
package middleware
