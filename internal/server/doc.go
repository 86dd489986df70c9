// Package server exposes the engine over HTTP with echo.
//
//	GET    /health
//	POST   /v1/chat/:driver                  blocking chat, JSON reply
//	POST   /v1/chat/:driver/stream           streamed chat, Server-Sent Events
//	GET    /v1/history/:driver/:class/:id    stored turns (?format=generic for ai.Message)
//	POST   /v1/history/:driver/:class/:id    append one turn
//	DELETE /v1/history/:driver/:class/:id    clear the scope for that driver
//
// Chat bodies are {"messages": [...], "options": {...}} with an optional
// "memory": {"parent_class", "parent_id"} that threads the call through the
// stored conversation. Errors use {"error": {"message", "type"}}.
package server
