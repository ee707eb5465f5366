package studyquiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionSetSchema(t *testing.T) {
	v, err := NewSchemaValidator(QuestionSetSchema, true)
	require.NoError(t, err)
	assert.True(t, v.Strict())

	assert.NoError(t, v.Validate(json.RawMessage(questionSetJSON(5, "ok"))))
	assert.Error(t, v.Validate(json.RawMessage(questionSetJSON(6, "too many"))))
	assert.Error(t, v.Validate(json.RawMessage(`{"items": []}`)))

	badEnum := `{"questions": [
		{"id": 1, "question": "a?", "difficulty": "trivial", "skill": "analysis"},
		{"id": 2, "question": "b?", "difficulty": "easy", "skill": "analysis"},
		{"id": 3, "question": "c?", "difficulty": "easy", "skill": "analysis"},
		{"id": 4, "question": "d?", "difficulty": "easy", "skill": "analysis"},
		{"id": 5, "question": "e?", "difficulty": "easy", "skill": "memorization"}
	]}`
	err = v.Validate(json.RawMessage(badEnum))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "difficulty")
}

func TestEvaluationSchema(t *testing.T) {
	v, err := NewSchemaValidator(EvaluationSchema, false)
	require.NoError(t, err)
	assert.False(t, v.Strict())

	assert.NoError(t, v.Validate(json.RawMessage(evaluationJSON)))
	assert.Error(t, v.Validate(json.RawMessage(`{"score": -1, "outOf": 10, "strengths": [], "areasToImprove": [], "nextStepSuggestion": ""}`)))
	assert.Error(t, v.Validate(json.RawMessage(`{"score": 5}`)))
}

func TestNewSchemaValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewSchemaValidator(`{"type": 12}`, true)
	assert.Error(t, err)
}
