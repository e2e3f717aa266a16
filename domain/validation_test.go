package domain

import (
	"mailbox/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
		err      error
	}{
		{name: "Missing message", input: nil, err: errors.ErrEmptyOrNotText},
		{name: "Not a string", input: 42.0, err: errors.ErrEmptyOrNotText},
		{name: "Empty string", input: "", err: errors.ErrEmptyOrNotText},
		{name: "Only spaces", input: "     ", err: errors.ErrTooShort},
		{name: "Two characters", input: "hi", err: errors.ErrTooShort},
		{name: "Short once trimmed", input: "   hey   ", err: errors.ErrTooShort},
		{name: "Too long", input: strings.Repeat("a", 501), err: errors.ErrTooLong},
		{name: "Exactly the maximum", input: strings.Repeat("a", 500), expected: strings.Repeat("a", 500)},
		{name: "Tags hide an overlong message", input: "<p>" + strings.Repeat("a", 498) + "</p>", err: errors.ErrTooLong},
		{name: "Tags are stripped", input: "<b>ok!!</b>", expected: "ok!!"},
		{name: "Only tags", input: "<div></div><br/>", err: errors.ErrTooShortAfterSanitization},
		{name: "Trimmed after stripping", input: "  <i> hello world </i>  ", expected: "hello world"},
		{name: "Multi-byte characters count as one", input: "été ok", expected: "été ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			clean, err := Validate(tt.input, DefaultRules)
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				req.ErrorIs(err, errors.ErrClientInput)
				req.Empty(clean)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, clean)
		})
	}
}

func TestValidate_RelayRulesAcceptSingleCharacter(t *testing.T) {
	req := require.New(t)
	clean, err := Validate(" x ", RelayRules)
	req.NoError(err)
	req.Equal("x", clean)
}

func TestValidationRules_Check(t *testing.T) {
	req := require.New(t)
	req.NoError(DefaultRules.Check())
	req.NoError(RelayRules.Check())
	req.Error(ValidationRules{MinLength: 10, MinSanitizedLength: 1, MaxLength: 5}.Check())
	req.Error(ValidationRules{MinLength: 0, MinSanitizedLength: 1, MaxLength: 5}.Check())
}
