package studyquiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/apex/log"
)

// AnswerEvaluator grades a student's free-text answer against the study
// material. Results are never cached.
type AnswerEvaluator struct {
	model     Model
	validator *SchemaValidator
}

// NewAnswerEvaluator creates an evaluator. validator may be nil.
func NewAnswerEvaluator(model Model, validator *SchemaValidator) *AnswerEvaluator {
	return &AnswerEvaluator{
		model:     model,
		validator: validator,
	}
}

// EvaluateAnswer returns the evaluation JSON produced by the model
func (ae *AnswerEvaluator) EvaluateAnswer(ctx context.Context, req EvaluationRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Question) == "" ||
		strings.TrimSpace(req.Answer) == "" ||
		strings.TrimSpace(req.ContextText) == "" {
		return nil, inputErrorf("Missing question, answer, or context text.")
	}

	logger := log.WithFields(log.Fields{
		"question_chars": utf8.RuneCountInString(req.Question),
		"answer_chars":   utf8.RuneCountInString(req.Answer),
	})
	logger.Info("evaluating answer")

	prompt := ae.buildPrompt(req)
	transcript := LLMLoggerFrom(ctx)
	if transcript != nil {
		transcript.LogLLMRequest("AnswerEvaluator", prompt)
	}

	response, err := ae.model.Complete(ctx, prompt)
	if err != nil {
		if transcript != nil {
			transcript.LogOutcome("AnswerEvaluator", err)
		}
		return nil, fmt.Errorf("failed to evaluate answer: %w", err)
	}
	if transcript != nil {
		transcript.LogLLMResponse("AnswerEvaluator", response)
	}

	doc, err := ExtractJSON(response)
	if err == nil && ae.validator != nil {
		if verr := ae.validator.Validate(doc); verr != nil {
			if ae.validator.Strict() {
				err = verr
			} else {
				logger.WithError(verr).Warn("evaluation does not match the requested shape")
			}
		}
	}
	if transcript != nil {
		transcript.LogOutcome("AnswerEvaluator", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse evaluation: %w", err)
	}

	return doc, nil
}

func (ae *AnswerEvaluator) buildPrompt(req EvaluationRequest) string {
	var sb strings.Builder

	sb.WriteString("You are an expert tutor.\n\n")
	sb.WriteString("Given the study material, question, and student's answer,\n")
	sb.WriteString("evaluate the answer honestly and provide constructive feedback.\n\n")

	sb.WriteString("Respond ONLY with valid JSON in this exact schema:\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"score\": 0,\n")
	sb.WriteString(fmt.Sprintf("  \"outOf\": %d,\n", MaxScore))
	sb.WriteString("  \"strengths\": [\"string\"],\n")
	sb.WriteString("  \"areasToImprove\": [\"string\"],\n")
	sb.WriteString("  \"nextStepSuggestion\": \"string\"\n")
	sb.WriteString("}\n\n")

	sb.WriteString("Study Material:\n")
	sb.WriteString(fmt.Sprintf("\"\"\"%s\"\"\"\n\n", req.ContextText))
	sb.WriteString("Question:\n")
	sb.WriteString(fmt.Sprintf("\"\"\"%s\"\"\"\n\n", req.Question))
	sb.WriteString("Student Answer:\n")
	sb.WriteString(fmt.Sprintf("\"\"\"%s\"\"\"\n", req.Answer))

	return sb.String()
}
