// Package gemini implements the chat driver and formatter for Google's
// Gemini generateContent API.
package gemini
