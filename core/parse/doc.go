// Package parse extracts structured data from raw LLM text output. Models
// wrap JSON in markdown fences, leave trailing commas and emit stray escape
// sequences, so the helpers normalise the text, try a strict decode, and then
// fall back to jsonrepair before giving up.
//
// [JSON] returns the generic decoded value (nil on failure, never an error),
// [JSONAs] decodes into a caller supplied type.
package parse
