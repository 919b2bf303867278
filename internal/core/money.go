// Package core holds the domain model shared by every store.
//
// This file contains parsing for user-entered monetary amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount string to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to two decimal places. Signs are rejected: the caller
// declares pay-in or pay-out intent separately, so amounts are always
// entered positive. Returns an error for invalid formats, negative
// values, or zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("12.346") -> 12.35, nil (rounds up)
//	ParseAmount("-5") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
