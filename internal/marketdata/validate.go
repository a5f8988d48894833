package marketdata

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxSymbolLength = 15
	maxQueryLength  = 40
)

// symbolPattern matches normalized ticker symbols ("AAPL", "BRK.B", "BTC-USD").
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// ValidateSymbol trims and upper-cases raw and checks it against the symbol
// grammar. Invalid symbols fail here so no upstream call is wasted on input
// the provider would reject anyway.
func ValidateSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))

	if symbol == "" {
		return "", fmt.Errorf("%w: symbol must not be empty", ErrInvalidInput)
	}
	if len(symbol) > maxSymbolLength {
		return "", fmt.Errorf("%w: symbol must be at most %d characters", ErrInvalidInput, maxSymbolLength)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: symbol may only contain A-Z, 0-9, '.' and '-'", ErrInvalidInput)
	}

	return symbol, nil
}

// ValidateQuery trims raw and bounds its length.
func ValidateQuery(raw string) (string, error) {
	query := strings.TrimSpace(raw)

	if query == "" {
		return "", fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if len(query) > maxQueryLength {
		return "", fmt.Errorf("%w: query must be at most %d characters", ErrInvalidInput, maxQueryLength)
	}

	return query, nil
}
