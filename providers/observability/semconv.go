package observability

// Attribute keys, span names, events and metric names shared by every
// component of the engine.

// --- LLM provider ---

const (
	AttrLLMProvider  = "llm.provider"
	AttrLLMModel     = "llm.model"
	AttrLLMEndpoint  = "llm.endpoint"
	AttrLLMStreaming = "llm.streaming"

	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- LLM tokens, not credentials

	AttrRequestMessagesCount = "request.messages_count"
)

// --- HTTP ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPDuration         = "http.request.duration"
)

// --- Streaming ---

const (
	// AttrStreamDeltas is the number of content deltas yielded by a stream.
	AttrStreamDeltas = "stream.deltas"

	// AttrStreamSkipped is the number of lines a stream discarded because they
	// did not decode or did not carry a delta.
	AttrStreamSkipped = "stream.skipped"
)

// --- Memory ---

const (
	AttrMemoryDriver      = "memory.driver"
	AttrMemoryParentClass = "memory.parent_class"
	AttrMemoryParentID    = "memory.parent_id"
	AttrMemoryRole        = "memory.message.role"
	AttrMemoryType        = "memory.message.type"
	AttrMemoryCount       = "memory.count"
)

// --- General ---

const (
	AttrError             = "error"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span names ---

const (
	SpanLLMRequest      = "llm.request"
	SpanMemoryOperation = "memory.operation"
)

// --- Events ---

const (
	EventLLMRequestStart = "llm.request.start"
	EventLLMRequestEnd   = "llm.request.end"
	EventStreamFinished  = "llm.stream.finished"
	EventMemoryAppend    = "memory.append"
	EventMemoryQuery     = "memory.query"
	EventMemoryClear     = "memory.clear"
)

// --- Metrics ---

const (
	MetricLLMRequestCount    = "engine.llm.request.count"
	MetricLLMRequestDuration = "engine.llm.request.duration"
	MetricStreamSkipped      = "engine.llm.stream.skipped"
)
