package studyquiz

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQuestionsCachesByText(t *testing.T) {
	quietLogs(t)
	ctx := context.Background()
	model := &scriptedModel{responses: []string{
		questionSetJSON(5, "first"),
		questionSetJSON(5, "second"),
	}}
	qm := NewQuestionMaker(model, NewMemoryCache(), nil)

	first, cached, err := qm.GenerateQuestions(ctx, studyText)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := qm.GenerateQuestions(ctx, studyText)
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(second), "first question 1")
	assert.Equal(t, 1, model.calls())
}

func TestGenerateQuestionsDifferentTextsAreIndependent(t *testing.T) {
	quietLogs(t)
	ctx := context.Background()
	model := &scriptedModel{responses: []string{
		questionSetJSON(5, "alpha"),
		questionSetJSON(5, "beta"),
	}}
	cache := NewMemoryCache()
	qm := NewQuestionMaker(model, cache, nil)

	other := strings.Replace(studyText, "Photosynthesis", "Cellular respiration", 1)

	a, _, err := qm.GenerateQuestions(ctx, studyText)
	require.NoError(t, err)
	b, _, err := qm.GenerateQuestions(ctx, other)
	require.NoError(t, err)

	assert.NotEqual(t, string(a), string(b))
	assert.Equal(t, 2, model.calls())

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
}

func TestGenerateQuestionsRejectsShortText(t *testing.T) {
	quietLogs(t)
	model := &scriptedModel{responses: []string{questionSetJSON(5, "x")}}
	qm := NewQuestionMaker(model, nil, nil)

	for _, text := range []string{
		"",
		"too short",
		"   " + strings.Repeat("a", MinStudyTextLength-1) + "   \n",
		strings.Repeat("é", MinStudyTextLength-1),
	} {
		_, _, err := qm.GenerateQuestions(context.Background(), text)
		require.Error(t, err)
		assert.True(t, IsInputError(err), "text %q should be an input error", text)
	}
	assert.Zero(t, model.calls())

	_, _, err := qm.GenerateQuestions(context.Background(), strings.Repeat("é", MinStudyTextLength))
	assert.NoError(t, err)
}

func TestGenerateQuestionsPromptEmbedsText(t *testing.T) {
	quietLogs(t)
	model := &scriptedModel{responses: []string{questionSetJSON(5, "x")}}
	qm := NewQuestionMaker(model, nil, nil)

	_, _, err := qm.GenerateQuestions(context.Background(), studyText)
	require.NoError(t, err)

	prompt := model.lastPrompt()
	assert.Contains(t, prompt, "EXACTLY 5 challenging questions")
	assert.Contains(t, prompt, `"""`+studyText+`"""`)
	assert.Contains(t, prompt, "concept_understanding | application | analysis")
}

func TestGenerateQuestionsFailures(t *testing.T) {
	quietLogs(t)
	tests := []struct {
		name  string
		model *scriptedModel
	}{
		{"model error", &scriptedModel{err: errors.New("connection refused")}},
		{"no braces", &scriptedModel{responses: []string{"I am unable to generate questions."}}},
		{"broken JSON", &scriptedModel{responses: []string{`{"questions": [}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewMemoryCache()
			qm := NewQuestionMaker(tt.model, cache, nil)

			_, _, err := qm.GenerateQuestions(context.Background(), studyText)
			require.Error(t, err)
			assert.False(t, IsInputError(err))

			stats, _ := cache.Stats(context.Background())
			assert.Zero(t, stats.Entries, "failures must not be cached")
		})
	}
}

func TestGenerateQuestionsStrictValidation(t *testing.T) {
	quietLogs(t)
	fourQuestions := questionSetJSON(4, "short")

	strict, err := NewSchemaValidator(QuestionSetSchema, true)
	require.NoError(t, err)
	qm := NewQuestionMaker(&scriptedModel{responses: []string{fourQuestions}}, nil, strict)
	_, _, err = qm.GenerateQuestions(context.Background(), studyText)
	assert.Error(t, err)

	lax, err := NewSchemaValidator(QuestionSetSchema, false)
	require.NoError(t, err)
	qm = NewQuestionMaker(&scriptedModel{responses: []string{fourQuestions}}, nil, lax)
	doc, _, err := qm.GenerateQuestions(context.Background(), studyText)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "short question 4")
}

// blockingModel holds every call until release is closed or the call's
// context ends
type blockingModel struct {
	response string
	started  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
}

func newBlockingModel(response string) *blockingModel {
	return &blockingModel{
		response: response,
		started:  make(chan struct{}, 64),
		release:  make(chan struct{}),
	}
}

func (m *blockingModel) Complete(ctx context.Context, _ string) (string, error) {
	m.calls.Add(1)
	m.started <- struct{}{}
	select {
	case <-m.release:
		return m.response, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// countingCache counts lookups so tests know when callers are past the cache
type countingCache struct {
	*MemoryCache
	gets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, digest string) ([]byte, bool, error) {
	defer c.gets.Add(1)
	return c.MemoryCache.Get(ctx, digest)
}

func TestGenerateQuestionsConcurrentMissesShareOneCall(t *testing.T) {
	quietLogs(t)
	model := newBlockingModel(questionSetJSON(5, "same"))
	cache := &countingCache{MemoryCache: NewMemoryCache()}
	qm := NewQuestionMaker(model, cache, nil)

	const n = 8
	results := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, _, err := qm.GenerateQuestions(context.Background(), studyText)
			results[i], errs[i] = string(doc), err
		}(i)
	}

	<-model.started
	require.Eventually(t, func() bool { return cache.gets.Load() == n }, 2*time.Second, time.Millisecond)
	// let the last callers get from the cache miss into the shared call
	time.Sleep(50 * time.Millisecond)
	close(model.release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, results[0], results[i])
	}
	assert.Contains(t, results[0], "same question 1?")
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestGenerateQuestionsCancelledCallerDoesNotFailOthers(t *testing.T) {
	quietLogs(t)
	model := newBlockingModel(questionSetJSON(5, "kept"))
	cache := &countingCache{MemoryCache: NewMemoryCache()}
	qm := NewQuestionMaker(model, cache, nil)

	dir := t.TempDir()
	ll, err := NewLLMLogger(dir, "joined", "generate")
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, _, err := qm.GenerateQuestions(ctxA, studyText)
		errA <- err
	}()
	<-model.started

	type result struct {
		doc json.RawMessage
		err error
	}
	resB := make(chan result, 1)
	go func() {
		doc, _, err := qm.GenerateQuestions(WithLLMLogger(context.Background(), ll), studyText)
		resB <- result{doc, err}
	}()
	require.Eventually(t, func() bool { return cache.gets.Load() == 2 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller is still waiting")
	}

	close(model.release)
	var b result
	select {
	case b = <-resB:
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never returned")
	}
	require.NoError(t, b.err)
	assert.Contains(t, string(b.doc), "kept question 1?")
	assert.Equal(t, int32(1), model.calls.Load())

	require.Eventually(t, func() bool {
		stats, _ := cache.Stats(context.Background())
		return stats.Entries == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ll.Close())
	data, err := os.ReadFile(filepath.Join(dir, "joined.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "shared with a concurrent request")
	assert.Contains(t, string(data), "kept question 1?")
}

func TestGenerateQuestionsSharedCallIsBounded(t *testing.T) {
	quietLogs(t)
	model := newBlockingModel(questionSetJSON(5, "never"))
	cache := NewMemoryCache()
	qm := NewQuestionMaker(model, cache, nil)
	qm.SetTimeout(50 * time.Millisecond)

	_, _, err := qm.GenerateQuestions(context.Background(), studyText)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsInputError(err))

	stats, _ := cache.Stats(context.Background())
	assert.Zero(t, stats.Entries)
}
