package studyquiz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
)

// Tutor wires the question maker and the answer evaluator to one model and
// one cache
type Tutor struct {
	maker     *QuestionMaker
	evaluator *AnswerEvaluator
	cache     Cache
}

// NewTutor creates a tutor from parts that already exist
func NewTutor(model Model, cache Cache, strict bool) (*Tutor, error) {
	if cache == nil {
		cache = NewMemoryCache()
	}

	questionSchema, err := NewSchemaValidator(QuestionSetSchema, strict)
	if err != nil {
		return nil, err
	}
	evaluationSchema, err := NewSchemaValidator(EvaluationSchema, strict)
	if err != nil {
		return nil, err
	}

	return &Tutor{
		maker:     NewQuestionMaker(model, cache, questionSchema),
		evaluator: NewAnswerEvaluator(model, evaluationSchema),
		cache:     cache,
	}, nil
}

// NewTutorFromConfig builds the model client and the configured cache
func NewTutorFromConfig(cfg *Config) (*Tutor, error) {
	cache, err := OpenCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	tutor, err := NewTutor(NewOpenAIModel(cfg.Model), cache, cfg.Validation.Strict)
	if err != nil {
		cache.Close()
		return nil, err
	}
	tutor.maker.SetTimeout(cfg.Model.Timeout)

	log.WithFields(log.Fields{
		"model":  cfg.Model.Name,
		"cache":  cfg.Cache.Backend,
		"strict": cfg.Validation.Strict,
	}).Info("tutor ready")
	return tutor, nil
}

// OpenCache opens the backend named in cfg
func OpenCache(cfg CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", CacheBackendMemory:
		return NewMemoryCache(), nil
	case CacheBackendSQLite:
		return OpenSQLiteCache(cfg.SQLitePath, cfg.TTL)
	case CacheBackendRedis:
		return NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// GenerateQuestions see QuestionMaker.GenerateQuestions
func (t *Tutor) GenerateQuestions(ctx context.Context, text string) (json.RawMessage, bool, error) {
	return t.maker.GenerateQuestions(ctx, text)
}

// EvaluateAnswer see AnswerEvaluator.EvaluateAnswer
func (t *Tutor) EvaluateAnswer(ctx context.Context, req EvaluationRequest) (json.RawMessage, error) {
	return t.evaluator.EvaluateAnswer(ctx, req)
}

// CacheStats reports on the question cache
func (t *Tutor) CacheStats(ctx context.Context) (CacheStats, error) {
	return t.cache.Stats(ctx)
}

// Close releases the cache
func (t *Tutor) Close() error {
	return t.cache.Close()
}
