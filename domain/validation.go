package domain

import (
	"mailbox/errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate   = validator.New()
	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ValidationRules bounds the accepted message length, counted in runes.
type ValidationRules struct {
	MinLength          int `validate:"min=1"`
	MinSanitizedLength int `validate:"min=1"`
	MaxLength          int `validate:"gtfield=MinLength"`
}

// DefaultRules are the limits applied to public submissions.
var DefaultRules = ValidationRules{MinLength: 5, MinSanitizedLength: 1, MaxLength: 500}

// RelayRules are the limits applied to the key-protected direct relay.
var RelayRules = ValidationRules{MinLength: 1, MinSanitizedLength: 1, MaxLength: 500}

func (r ValidationRules) Check() error {
	return validate.Struct(r)
}

// Validate turns raw user input into clean message content.
// The original length is checked before markup is stripped so that
// tags cannot hide an oversized submission.
// Tag stripping is best-effort sanitation, rendering must still escape.
func Validate(raw any, rules ValidationRules) (string, error) {
	text, ok := raw.(string)
	if !ok || text == "" {
		return "", errors.ErrEmptyOrNotText
	}

	trimmed := strings.TrimSpace(text)
	if validate.Var(trimmed, "min="+strconv.Itoa(rules.MinLength)) != nil {
		return "", errors.ErrTooShort
	}
	if validate.Var(text, "max="+strconv.Itoa(rules.MaxLength)) != nil {
		return "", errors.ErrTooLong
	}

	clean := strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
	if validate.Var(clean, "min="+strconv.Itoa(rules.MinSanitizedLength)) != nil {
		return "", errors.ErrTooShortAfterSanitization
	}

	if runes := []rune(clean); len(runes) > rules.MaxLength {
		clean = string(runes[:rules.MaxLength])
	}
	return clean, nil
}
