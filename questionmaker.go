package studyquiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// DefaultGenerationTimeout bounds a shared generation. It runs detached from
// any single request, so no caller can cancel it.
const DefaultGenerationTimeout = 2 * time.Minute

// QuestionMaker turns study text into a set of open-ended questions, caching
// the result by the digest of the text
type QuestionMaker struct {
	model     Model
	cache     Cache
	validator *SchemaValidator
	group     singleflight.Group
	timeout   time.Duration
}

// NewQuestionMaker creates a question maker. validator may be nil.
func NewQuestionMaker(model Model, cache Cache, validator *SchemaValidator) *QuestionMaker {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &QuestionMaker{
		model:     model,
		cache:     cache,
		validator: validator,
		timeout:   DefaultGenerationTimeout,
	}
}

// SetTimeout changes the bound on a shared generation. Zero or less keeps the
// current value.
func (qm *QuestionMaker) SetTimeout(d time.Duration) {
	if d > 0 {
		qm.timeout = d
	}
}

// GenerateQuestions returns the question-set JSON for text and whether it was
// served from the cache. Concurrent misses for the same text share one model call.
func (qm *QuestionMaker) GenerateQuestions(ctx context.Context, text string) (json.RawMessage, bool, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinStudyTextLength {
		return nil, false, inputErrorf("Please provide at least %d characters of study material.", MinStudyTextLength)
	}

	digest := HashText(text)
	logger := log.WithField("digest", digest[:12])

	payload, ok, err := qm.cache.Get(ctx, digest)
	if err != nil {
		logger.WithError(err).Warn("cache read failed, generating")
	} else if ok {
		logger.Info("returning cached questions")
		return json.RawMessage(payload), true, nil
	}

	// The leader's cancellation must not fail the callers that joined it, so
	// the upstream call gets its own context and each caller waits on its own.
	leader := false
	ch := qm.group.DoChan(digest, func() (interface{}, error) {
		leader = true
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), qm.timeout)
		defer cancel()
		return qm.generate(genCtx, digest, text)
	})

	select {
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Info("request gave up waiting for questions")
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		doc := res.Val.(json.RawMessage)
		if !leader {
			VerboseLog("Question generation for %s shared with a concurrent request", digest[:12])
			if transcript := LLMLoggerFrom(ctx); transcript != nil {
				transcript.LogLLMResponse("QuestionMaker (shared with a concurrent request)", string(doc))
			}
		}
		return doc, false, nil
	}
}

func (qm *QuestionMaker) generate(ctx context.Context, digest, text string) (json.RawMessage, error) {
	logger := log.WithFields(log.Fields{
		"digest": digest[:12],
		"chars":  utf8.RuneCountInString(text),
	})
	logger.Info("generating questions")

	prompt := qm.buildPrompt(text)
	transcript := LLMLoggerFrom(ctx)
	if transcript != nil {
		transcript.LogLLMRequest("QuestionMaker", prompt)
	}

	response, err := qm.model.Complete(ctx, prompt)
	if err != nil {
		if transcript != nil {
			transcript.LogOutcome("QuestionMaker", err)
		}
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	if transcript != nil {
		transcript.LogLLMResponse("QuestionMaker", response)
	}

	doc, err := ExtractJSON(response)
	if err == nil {
		err = qm.check(logger, doc)
	}
	if transcript != nil {
		transcript.LogOutcome("QuestionMaker", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	if err := qm.cache.Set(ctx, digest, doc); err != nil {
		logger.WithError(err).Warn("cache write failed")
	}

	logger.Info("generated questions")
	return doc, nil
}

// check applies the schema validator. Outside strict mode a violation is
// only logged.
func (qm *QuestionMaker) check(logger log.Interface, doc json.RawMessage) error {
	if qm.validator == nil {
		return nil
	}
	err := qm.validator.Validate(doc)
	if err == nil || qm.validator.Strict() {
		return err
	}
	logger.WithError(err).Warn("question set does not match the requested shape")
	return nil
}

func (qm *QuestionMaker) buildPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("You are a teaching assistant.\n\n")
	sb.WriteString(fmt.Sprintf("Read the study material below and generate EXACTLY %d challenging questions\n", QuestionsPerSet))
	sb.WriteString("that test conceptual understanding, application, and analysis.\n\n")

	sb.WriteString("Respond ONLY with valid JSON in this exact schema:\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"questions\": [\n")
	sb.WriteString("    {\n")
	sb.WriteString("      \"id\": 1,\n")
	sb.WriteString("      \"question\": \"string\",\n")
	sb.WriteString("      \"difficulty\": \"easy | medium | hard\",\n")
	sb.WriteString("      \"skill\": \"concept_understanding | application | analysis\"\n")
	sb.WriteString("    }\n")
	sb.WriteString("  ]\n")
	sb.WriteString("}\n\n")

	sb.WriteString("Study Material:\n")
	sb.WriteString(fmt.Sprintf("\"\"\"%s\"\"\"\n", text))

	return sb.String()
}
