package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// DefaultEventType is the event name that is never written on the wire;
// browsers dispatch unnamed events as "message".
const DefaultEventType = "message"

// DefaultHeaders are written by Start before any per-call or configured
// headers.
var DefaultHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache, no-store, must-revalidate",
	"X-Accel-Buffering": "no",
	"Connection":        "keep-alive",
}

// Writer emits Server-Sent Events on an HTTP response. It is safe for
// concurrent use; each event is written atomically.
type Writer struct {
	mu        sync.Mutex
	w         io.Writer
	header    http.Header
	flusher   http.Flusher
	status    func(int)
	id        string
	eventType string
	headers   map[string]string
	autoFlush bool
	padding   int
	started   bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithHeaders adds headers written by Start after the defaults and the
// per-call headers.
func WithHeaders(headers map[string]string) Option {
	return func(w *Writer) {
		w.SetHeaders(headers)
	}
}

// WithPadding makes Start write n spaces and a newline before the first
// event, for proxies that buffer small responses.
func WithPadding(n int) Option {
	return func(w *Writer) {
		w.padding = n
	}
}

// WithAutoFlush controls whether every Send flushes. Defaults to true.
func WithAutoFlush(autoFlush bool) Option {
	return func(w *Writer) {
		w.autoFlush = autoFlush
	}
}

// WithEventType sets the default event name.
func WithEventType(eventType string) Option {
	return func(w *Writer) {
		w.eventType = eventType
	}
}

// New returns a writer over rw. Flushing is a no-op when rw does not
// implement http.Flusher.
func New(rw http.ResponseWriter, opts ...Option) *Writer {
	writer := &Writer{
		w:         rw,
		header:    rw.Header(),
		status:    rw.WriteHeader,
		eventType: DefaultEventType,
		autoFlush: true,
	}
	writer.flusher, _ = rw.(http.Flusher)
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// NewStream returns a writer over a plain stream such as os.Stdout. Start
// writes no headers.
func NewStream(w io.Writer, opts ...Option) *Writer {
	writer := &Writer{w: w, eventType: DefaultEventType, autoFlush: true}
	writer.flusher, _ = w.(http.Flusher)
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// Start writes the response headers and the optional padding. Headers are
// merged in order: defaults, then headers, then those configured on the
// writer. Calling Start twice is a no-op.
func (w *Writer) Start(headers map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.started = true

	if w.header != nil {
		for _, set := range []map[string]string{DefaultHeaders, headers, w.headers} {
			for name, value := range set {
				w.header.Set(name, value)
			}
		}
	}
	if w.status != nil {
		w.status(http.StatusOK)
	}
	if w.padding > 0 {
		if _, err := io.WriteString(w.w, strings.Repeat(" ", w.padding)+"\n"); err != nil {
			return fmt.Errorf("sse: write padding: %w", err)
		}
	}
	w.flush()
	return nil
}

// Message is one event of a batch.
type Message struct {
	ID    string
	Event string
	Data  any
}

// SendOption overrides the writer defaults for one event.
type SendOption func(*sendConfig)

type sendConfig struct {
	id        string
	eventType string
	flush     *bool
}

// ID sets the event id.
func ID(id string) SendOption {
	return func(c *sendConfig) {
		c.id = id
	}
}

// Event sets the event name.
func Event(eventType string) SendOption {
	return func(c *sendConfig) {
		c.eventType = eventType
	}
}

// Flush forces or suppresses the flush after this event.
func Flush(flush bool) SendOption {
	return func(c *sendConfig) {
		c.flush = &flush
	}
}

// Send writes one event. Strings and byte slices are sent verbatim, any
// other value is JSON encoded. Each line of the payload becomes its own
// data field; CRLF and lone CR count as line breaks. Line breaks in the id
// and event name are dropped.
func (w *Writer) Send(data any, opts ...SendOption) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.send(data, opts...)
}

func (w *Writer) send(data any, opts ...SendOption) error {
	cfg := sendConfig{id: w.id, eventType: w.eventType}
	for _, opt := range opts {
		opt(&cfg)
	}
	flush := w.autoFlush
	if cfg.flush != nil {
		flush = *cfg.flush
	}

	payload, err := encode(data)
	if err != nil {
		return err
	}

	id, eventType := singleLine(cfg.id), singleLine(cfg.eventType)

	var b strings.Builder
	if id != "" {
		fmt.Fprintf(&b, "id: %s\n", id)
	}
	if eventType != "" && eventType != DefaultEventType {
		fmt.Fprintf(&b, "event: %s\n", eventType)
	}
	for _, line := range strings.Split(lineBreaks.Replace(payload), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if flush {
		w.flush()
	}
	return nil
}

// SendBatch writes messages in order and flushes once, after the last one.
func (w *Writer) SendBatch(messages []Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, message := range messages {
		opts := []SendOption{Flush(i == len(messages)-1 && w.autoFlush)}
		if message.ID != "" {
			opts = append(opts, ID(message.ID))
		}
		if message.Event != "" {
			opts = append(opts, Event(message.Event))
		}
		if err := w.send(message.Data, opts...); err != nil {
			return err
		}
	}
	return nil
}

// KeepAlive writes a comment line. An empty comment sends "keepalive".
func (w *Writer) KeepAlive(comment string) error {
	comment = singleLine(comment)
	if comment == "" {
		comment = "keepalive"
	}
	return w.raw(": " + comment + "\n\n")
}

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SendError writes an "error" event. A zero code becomes 500.
func (w *Writer) SendError(message string, code int) error {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return w.Send(ErrorPayload{Error: true, Message: message, Code: code}, Event("error"), Flush(true))
}

// End writes data as a final message when it is not nil, then a "done"
// event. The caller returns from its handler afterwards.
func (w *Writer) End(data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if data != nil {
		if err := w.send(data); err != nil {
			return err
		}
	}
	return w.send(map[string]string{"type": "done"}, Event("done"), Flush(true))
}

// SetRetryTimeout tells the client how long to wait before reconnecting.
func (w *Writer) SetRetryTimeout(milliseconds int) error {
	return w.raw(fmt.Sprintf("retry: %d\n\n", milliseconds))
}

// SetID sets the id attached to subsequent events.
func (w *Writer) SetID(id string) *Writer {
	w.mu.Lock()
	w.id = id
	w.mu.Unlock()
	return w
}

// SetEventType sets the event name of subsequent events.
func (w *Writer) SetEventType(eventType string) *Writer {
	w.mu.Lock()
	w.eventType = eventType
	w.mu.Unlock()
	return w
}

// SetHeaders replaces the headers Start writes after the defaults.
func (w *Writer) SetHeaders(headers map[string]string) *Writer {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	w.mu.Lock()
	w.headers = copied
	w.mu.Unlock()
	return w
}

// SetAutoFlush toggles flushing after every Send.
func (w *Writer) SetAutoFlush(autoFlush bool) *Writer {
	w.mu.Lock()
	w.autoFlush = autoFlush
	w.mu.Unlock()
	return w
}

func (w *Writer) raw(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

var (
	lineBreaks  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	stripBreaks = strings.NewReplacer("\r", "", "\n", "")
)

func singleLine(s string) string {
	return stripBreaks.Replace(s)
}

func encode(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("sse: encode payload: %w", err)
	}
	return string(encoded), nil
}
