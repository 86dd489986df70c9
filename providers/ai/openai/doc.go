// Package openai implements the chat driver and message formatter for the
// OpenAI chat completions API.
//
// Requests go to {base}/chat/completions with Bearer authentication and an
// optional OpenAI-Organization header. Streaming uses SSE and ends at the
// [DONE] sentinel.
package openai
