package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
	jsonFence           = regexp.MustCompile("(?is)```JSON(.*?)```")
)

// Normalize applies the cleanup JSON runs before decoding: literal "\n" and
// "\r" escape sequences are removed, trailing commas before a closing brace
// or bracket are dropped, non-breaking spaces are removed and whitespace runs
// collapse to one space. When the text holds a ```json fence (any case), only
// the fenced body is returned.
func Normalize(text string) string {
	cleaned := strings.NewReplacer(`\n`, "", `\r`, "", "\u00a0", "").Replace(text)
	cleaned = trailingCommaObject.ReplaceAllString(cleaned, "}")
	cleaned = trailingCommaArray.ReplaceAllString(cleaned, "]")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")

	if match := jsonFence.FindStringSubmatch(cleaned); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(cleaned)
}

// JSON extracts a JSON object or array from model output. It returns a
// map[string]any or []any, or nil when nothing usable is found. Scalars are
// rejected. Malformed JSON is passed through jsonrepair before giving up.
func JSON(text string) any {
	candidate := Normalize(text)
	if candidate == "" {
		return nil
	}

	if value, ok := decodeContainer(candidate); ok {
		return value
	}

	repaired, err := repair(candidate)
	if err != nil {
		return nil
	}
	if value, ok := decodeContainer(repaired); ok {
		return value
	}
	return nil
}

// JSONAs decodes model output into T using the same cleanup and repair as
// JSON. As a last resort it unwraps {"type": ..., "value": ...} envelopes,
// which models produce when they echo a schema instead of data.
//
//	type Person struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age"`
//	}
//
//	person, err := parse.JSONAs[Person]("```json\n{name: 'John', age: 30,}\n```")
func JSONAs[T any](text string) (T, error) {
	var result T
	candidate := Normalize(text)
	if candidate == "" {
		return result, fmt.Errorf("parse: empty input")
	}

	err := json.Unmarshal([]byte(candidate), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := repair(candidate)
	if repairErr != nil {
		return result, fmt.Errorf("parse: decode %T: %w (repair failed: %v)", result, err, repairErr)
	}
	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}

	if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
		if json.Unmarshal([]byte(unwrapped), &result) == nil {
			return result, nil
		}
	}
	return result, fmt.Errorf("parse: decode repaired JSON as %T: %w", result, err)
}

func decodeContainer(text string) (any, bool) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, false
	}
	switch value.(type) {
	case map[string]any, []any:
		return value, true
	}
	return nil, false
}

// repair converts a jsonrepair panic into an error.
func repair(text string) (repaired string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse: repair panicked: %v", r)
		}
	}()
	return jsonrepair.JSONRepair(text)
}

// unwrapSchemaValues rewrites {"name": {"type": "string", "value": "John"}}
// as {"name": "John"}, recursively.
func unwrapSchemaValues(text string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", err
	}
	out, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result
	default:
		return data
	}
}
