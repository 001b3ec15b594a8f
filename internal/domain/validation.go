package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MaxQuantity bounds duration and calories so the derived default (duration * 10) fits a 32-bit int.
const MaxQuantity = 100_000_000

// ValidationKind identifies one of the three submit failures.
type ValidationKind string

const (
	KindEmptyType       ValidationKind = "empty_type"
	KindInvalidDuration ValidationKind = "invalid_duration"
	KindInvalidCalories ValidationKind = "invalid_calories"
)

// ErrorTitle is the heading shown with every validation message.
const ErrorTitle = "Error"

var validationMessages = map[ValidationKind]string{
	KindEmptyType:       "Please enter an activity type",
	KindInvalidDuration: "Duration must be a positive integer",
	KindInvalidCalories: "Calories must be a positive integer",
}

// Message returns the fixed user-facing text for the kind.
func (k ValidationKind) Message() string {
	return validationMessages[k]
}

// ValidationError is returned by Submit when the draft cannot become an Activity.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	return e.Kind.Message()
}

// Is matches any ValidationError of the same kind.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	// ErrEmptyType is returned when the trimmed activity type is empty.
	ErrEmptyType = &ValidationError{Kind: KindEmptyType, Field: "type"}
	// ErrInvalidDuration is returned when duration is not a positive integer.
	ErrInvalidDuration = &ValidationError{Kind: KindInvalidDuration, Field: "duration"}
	// ErrInvalidCalories is returned when a non-empty calories value is not a positive integer.
	ErrInvalidCalories = &ValidationError{Kind: KindInvalidCalories, Field: "calories"}
)

var positiveInteger = regexp.MustCompile(`^[1-9]\d*$`)

// isFormSpace matches the whitespace and line terminators a form trim removes:
// Unicode White_Space plus the byte order mark, minus NEL (U+0085).
func isFormSpace(r rune) bool {
	return r == '\uFEFF' || (r != '\u0085' && unicode.IsSpace(r))
}

// trim strips leading and trailing form whitespace.
func trim(s string) string {
	return strings.TrimFunc(s, isFormSpace)
}

// IsPositiveInteger reports whether the trimmed string has positive-integer syntax:
// one or more ASCII digits, no sign, no decimal point, no leading zero.
func IsPositiveInteger(s string) bool {
	return positiveInteger.MatchString(trim(s))
}

// parseQuantity parses a positive-integer field, rejecting values above MaxQuantity.
func parseQuantity(s string) (int, bool) {
	trimmed := trim(s)
	if !positiveInteger.MatchString(trimmed) {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n > MaxQuantity {
		return 0, false
	}
	return n, true
}

// validated is a draft that passed every check.
type validated struct {
	Type     string
	Duration int
	Calories int
}

// validate applies the checks in order; the first failure wins.
func validate(d Draft) (validated, error) {
	activityType := trim(d.Type)
	if activityType == "" {
		return validated{}, ErrEmptyType
	}

	duration, ok := parseQuantity(d.Duration)
	if !ok {
		return validated{}, ErrInvalidDuration
	}

	calories := duration * 10
	if trim(d.Calories) != "" {
		calories, ok = parseQuantity(d.Calories)
		if !ok {
			return validated{}, ErrInvalidCalories
		}
	}

	return validated{Type: activityType, Duration: duration, Calories: calories}, nil
}
