package studyquiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// QuestionSetSchema is the shape the generation prompt asks the model for
var QuestionSetSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"minItems": %d,
			"maxItems": %d,
			"items": {
				"type": "object",
				"required": ["id", "question", "difficulty", "skill"],
				"properties": {
					"id": {"type": "integer"},
					"question": {"type": "string", "minLength": 1},
					"difficulty": {"enum": ["easy", "medium", "hard"]},
					"skill": {"enum": ["concept_understanding", "application", "analysis"]}
				}
			}
		}
	}
}`, QuestionsPerSet, QuestionsPerSet)

// EvaluationSchema is the shape the grading prompt asks the model for
var EvaluationSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["score", "outOf", "strengths", "areasToImprove", "nextStepSuggestion"],
	"properties": {
		"score": {"type": "number", "minimum": 0, "maximum": %d},
		"outOf": {"type": "number"},
		"strengths": {"type": "array", "items": {"type": "string"}},
		"areasToImprove": {"type": "array", "items": {"type": "string"}},
		"nextStepSuggestion": {"type": "string"}
	}
}`, MaxScore)

// SchemaValidator checks model output against a JSON schema. In lax mode a
// violation is only reported back so the caller can log it.
type SchemaValidator struct {
	schema *gojsonschema.Schema
	strict bool
}

// NewSchemaValidator compiles schema
func NewSchemaValidator(schema string, strict bool) (*SchemaValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &SchemaValidator{schema: compiled, strict: strict}, nil
}

// Strict reports whether violations should fail the request
func (v *SchemaValidator) Strict() bool {
	return v.strict
}

// Validate returns an error describing every violation in doc
func (v *SchemaValidator) Validate(doc json.RawMessage) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate model JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("model JSON violates schema: %s", strings.Join(problems, "; "))
}
