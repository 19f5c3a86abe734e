package intake

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports user input that cannot be accepted for a question.
// It leaves session state untouched; the same question is asked again.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ParseAnswer validates raw input against the question's kind and bounds and
// returns the typed value. This is the single boundary where untyped input
// enters the answer set.
func ParseAnswer(q Question, raw string) (Value, error) {
	trimmed := strings.TrimSpace(raw)
	switch q.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Value{}, invalid("please enter a valid number")
		}
		if q.Min != nil && n < *q.Min {
			return Value{}, invalid("value must be at least %s", formatFloat(*q.Min))
		}
		if q.Max != nil && n > *q.Max {
			return Value{}, invalid("value must be no more than %s", formatFloat(*q.Max))
		}
		return NumberValue(n), nil
	case KindChoice:
		for _, opt := range q.Options {
			if opt == trimmed {
				return TextValue(opt), nil
			}
		}
		return Value{}, invalid("please choose one of the listed options")
	default:
		if trimmed == "" {
			return Value{}, invalid("please provide an answer")
		}
		return TextValue(trimmed), nil
	}
}
