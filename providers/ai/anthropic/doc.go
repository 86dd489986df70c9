// Package anthropic implements the "claude" chat driver and formatter on top
// of Anthropic's Messages API.
//
// The API has no system role in the messages array; system messages are sent
// as user turns. Stored media is flattened into tagged text
// (<image>url</image>, <audio format="wav">data</audio>) because history is
// replayed as plain strings.
package anthropic
