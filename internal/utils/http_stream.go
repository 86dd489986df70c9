package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DoPostStream POSTs body and returns the response with its body still open
// for incremental reading. The caller owns the body on success. Non-2xx
// responses are drained (up to maxResponseBodySize), closed and reported as a
// *StatusError.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	response, err := doPost(ctx, client, url, apiKey, body, "text/event-stream", headers)
	if err != nil {
		return response, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return response, &StatusError{StatusCode: response.StatusCode, Body: string(errorBody)}
	}

	return response, nil
}

// maxLineSize bounds a single streamed line (1 MB). bufio.Scanner's 64 KiB
// default is too small for long completions.
const maxLineSize = 1 * 1024 * 1024

// PayloadReader yields one payload per call and io.EOF at the end of the
// stream. SSEScanner and LineScanner implement it.
type PayloadReader interface {
	Next() (string, error)
}

func newScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// SSEScanner reads Server-Sent Events and returns the data payload of each
// event. Multi-line data fields are joined with newlines, comments and the
// event/id/retry fields are ignored, and the [DONE] sentinel ends the stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner wraps reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return &SSEScanner{scanner: newScanner(reader)}
}

// Next returns the next event payload, or io.EOF once the stream ends or the
// [DONE] sentinel arrives. Data buffered when the stream ends without a
// trailing blank line is still returned.
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}

// LineScanner reads newline-delimited payloads. Blank lines are skipped and a
// leading "data:" prefix is removed, so it also accepts SSE framed streams
// whose events fit on one line. Every other line is returned untouched; the
// caller decides whether it decodes.
type LineScanner struct {
	scanner *bufio.Scanner
}

// NewLineScanner wraps reader.
func NewLineScanner(reader io.Reader) *LineScanner {
	return &LineScanner{scanner: newScanner(reader)}
}

// Next returns the next non-blank line, or io.EOF at the end of the stream.
func (s *LineScanner) Next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(data)
		}
		return line, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("line scanner error: %w", err)
	}
	return "", io.EOF
}
