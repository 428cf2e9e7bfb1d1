// Package core provides money parsing and handling utilities.
//
// This file contains the number normalization applied to money and
// percentage fields before they are sent to the workspace.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// decimalLiteral accepts an optional sign, digits and an optional fraction.
// Exponents, infinities and NaN are rejected so the value is always finite.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseAmount converts a money string to a decimal.
//
// Grouping commas and surrounding whitespace are ignored:
//
//	ParseAmount("5,000")  -> 5000
//	ParseAmount(" 4.50 ") -> 4.5
//	ParseAmount("12.34.56") -> ErrInvalidNumberFormat
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	return parseLiteral(s)
}

// ParsePercentage converts a percentage string such as " 5% " to a decimal
// holding the percentage points (5, not 0.05).
func ParsePercentage(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return parseLiteral(s)
}

func parseLiteral(s string) (decimal.Decimal, error) {
	if !decimalLiteral.MatchString(s) {
		return decimal.Zero, ErrInvalidNumberFormat
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumberFormat
	}
	return d, nil
}
