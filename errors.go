package studyquiz

import (
	"errors"
	"fmt"
)

// ErrNoJSON is returned when a model response contains no brace-delimited span.
var ErrNoJSON = errors.New("no JSON object found in model response")

// InputError reports a problem with what the caller sent. Handlers map it to
// 400 and show the message verbatim; every other error becomes a generic 500.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func inputErrorf(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err (or anything it wraps) is an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
