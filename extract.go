package studyquiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON takes the widest brace span of a model response, from the first
// '{' to the last '}', and checks that it parses as JSON. Prose or markdown
// fences around the object are dropped. The result is compacted so the same
// document always serializes to the same bytes.
func ExtractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSON
	}

	span := text[start : end+1]

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(span)); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
