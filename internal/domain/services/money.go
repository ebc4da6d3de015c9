package services

import "github.com/shopspring/decimal"

// Monetary arithmetic keeps four fractional digits internally and rounds
// half-up to two digits only at the order totals boundary.

func money4(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

func money2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var one = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)
