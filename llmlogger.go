package studyquiz

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// LLMLogger appends every model round trip of one request to its own
// transcript file
type LLMLogger struct {
	file      io.WriteCloser
	mu        sync.Mutex
	requestID string
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewLLMLogger creates <dir>/<requestID>.log and writes the header
func NewLLMLogger(dir, requestID, operation string) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	name := unsafeFileChars.ReplaceAllString(requestID, "_")
	if name == "" {
		name = fmt.Sprintf("req-%d", time.Now().UnixNano())
	}

	filename := filepath.Join(dir, name+".log")
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript file: %w", err)
	}

	logger := &LLMLogger{
		file:      file,
		requestID: requestID,
	}

	logger.Logf("=== %s ===\n", operation)
	logger.Logf("Request ID: %s\n", requestID)
	logger.Logf("Started: %s\n\n", time.Now().Format(time.RFC3339))

	return logger, nil
}

// Logf writes a formatted entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
}

// LogLLMRequest logs the prompt sent to the model
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs the raw text the model returned
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogOutcome logs how the response was handled
func (ll *LLMLogger) LogOutcome(module string, err error) {
	if err != nil {
		ll.Logf("%s: FAILED - %v\n", module, err)
		return
	}
	ll.Logf("%s: OK\n", module)
}

// Close writes the footer and closes the file
func (ll *LLMLogger) Close() error {
	ll.Logf("Completed: %s\n", time.Now().Format(time.RFC3339))

	ll.mu.Lock()
	defer ll.mu.Unlock()
	if ll.file == nil {
		return nil
	}
	err := ll.file.Close()
	ll.file = nil
	return err
}

type llmLoggerKey struct{}

// WithLLMLogger attaches a transcript logger to ctx
func WithLLMLogger(ctx context.Context, ll *LLMLogger) context.Context {
	return context.WithValue(ctx, llmLoggerKey{}, ll)
}

// LLMLoggerFrom returns the transcript logger attached to ctx, or nil
func LLMLoggerFrom(ctx context.Context) *LLMLogger {
	ll, _ := ctx.Value(llmLoggerKey{}).(*LLMLogger)
	return ll
}
