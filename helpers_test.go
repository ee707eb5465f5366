package studyquiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// scriptedModel returns its responses in order, repeating the last one
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("scriptedModel: no responses")
	}
	i := len(m.prompts) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *scriptedModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// questionSetJSON builds a question set with n questions whose text carries tag
func questionSetJSON(n int, tag string) string {
	skills := []string{"concept_understanding", "application", "analysis"}
	difficulties := []string{"easy", "medium", "hard"}

	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": %d, "question": "%s question %d?", "difficulty": "%s", "skill": "%s"}`,
			i, tag, i, difficulties[i%3], skills[i%3]))
	}
	return `{"questions": [` + strings.Join(items, ", ") + `]}`
}

const evaluationJSON = `{
  "score": 7,
  "outOf": 10,
  "strengths": ["Names the light and dark reactions"],
  "areasToImprove": ["Explain where ATP is produced"],
  "nextStepSuggestion": "Review the role of the thylakoid membrane."
}`

const studyText = "Photosynthesis converts light energy into chemical energy. " +
	"The light-dependent reactions happen in the thylakoid membranes and produce ATP and NADPH, " +
	"which the Calvin cycle uses in the stroma to fix carbon dioxide into sugars."

func quietLogs(t *testing.T) {
	t.Helper()
	InitLogger(io.Discard, "error")
}
