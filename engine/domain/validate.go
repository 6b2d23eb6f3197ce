package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input limits enforced before any pipeline stage runs.
const (
	MinNameLength  = 2
	MaxNameLength  = 100
	MinQueryLength = 2
	MaxQueryLength = 200
	MaxTextLength  = 1000
	MaxQuantityG   = 10000 // 10 kg
)

// sanitize strips characters that should never appear in a food name or query.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// ValidateFoodName sanitizes and validates a food name, returning the cleaned value.
func ValidateFoodName(name string) (string, error) {
	clean := sanitize(name)
	if clean == "" {
		return "", NewValidationError("food_name", name, ErrNameRequired)
	}
	n := utf8.RuneCountInString(clean)
	if n < MinNameLength {
		return "", NewValidationError("food_name", name, ErrNameTooShort)
	}
	if n > MaxNameLength {
		return "", NewValidationError("food_name", name, ErrNameTooLong)
	}
	return clean, nil
}

// ValidateQuery sanitizes and validates a retrieval query, returning the cleaned value.
func ValidateQuery(query string) (string, error) {
	clean := sanitize(query)
	if clean == "" {
		return "", NewValidationError("query", query, ErrQueryRequired)
	}
	n := utf8.RuneCountInString(clean)
	if n < MinQueryLength {
		return "", NewValidationError("query", query, ErrQueryTooShort)
	}
	if n > MaxQueryLength {
		return "", NewValidationError("query", query, ErrQueryTooLong)
	}
	return clean, nil
}

// ValidateQuantity validates a quantity in grams.
func ValidateQuantity(grams float64) error {
	if grams <= 0 {
		return NewValidationError("quantity_g", fmt.Sprintf("%g", grams), ErrQuantityNotPositive)
	}
	if grams > MaxQuantityG {
		return NewValidationError("quantity_g", fmt.Sprintf("%g", grams), ErrQuantityTooLarge)
	}
	return nil
}

// ValidateText validates optional free text (verification input, extra context).
// Empty text is allowed.
func ValidateText(text string) (string, error) {
	clean := strings.TrimSpace(text)
	if utf8.RuneCountInString(clean) > MaxTextLength {
		return "", NewValidationError("text", clean[:40]+"...", ErrTextTooLong)
	}
	return clean, nil
}
