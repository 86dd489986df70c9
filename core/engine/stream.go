package engine

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bupple-inc/ai-engine/core/sse"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/memory"
)

// PipeStream forwards every delta of stream to w as a default "message"
// event carrying {"content","model"} and finishes with the done event. A
// mid-stream failure is sent as an error event instead of done and returned.
//
// The returned response holds the text streamed so far, so callers can store
// the assistant turn even when the stream failed half way.
func PipeStream(w *sse.Writer, stream *ai.DeltaStream) (*ai.Response, error) {
	if err := w.Start(nil); err != nil {
		return nil, err
	}

	var content strings.Builder
	response := &ai.Response{Role: ai.RoleAssistant}

	for delta, err := range stream.Iter() {
		if err != nil {
			response.Content = content.String()
			if sendErr := w.SendError(err.Error(), StatusCode(err)); sendErr != nil {
				return response, errors.Join(err, sendErr)
			}
			return response, err
		}

		content.WriteString(delta.Content)
		if delta.Model != "" {
			response.Model = delta.Model
		}
		if err := w.Send(delta); err != nil {
			response.Content = content.String()
			return response, err
		}
	}

	response.Content = content.String()
	return response, w.End(nil)
}

// StatusCode maps an engine error to an HTTP status: the upstream status of
// a provider failure, 400 for unsupported drivers and unset scopes, 500
// otherwise.
func StatusCode(err error) int {
	var requestErr *ai.ProviderRequestError
	if errors.As(err, &requestErr) {
		if requestErr.StatusCode != 0 {
			return requestErr.StatusCode
		}
		return http.StatusBadGateway
	}

	var unsupported *ai.UnsupportedDriverError
	var scopeErr *memory.ScopeNotSetError
	if errors.As(err, &unsupported) || errors.As(err, &scopeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
