// Package kelly turns a modeled probability and a market price into an edge
// and a risk-bounded stake. Everything here is pure.
package kelly

import (
	"math"

	"github.com/shopspring/decimal"
)

// Limits bounds a fractional-Kelly stake
type Limits struct {
	KellyMultiplier  float64 // fraction of full Kelly, e.g. 0.5
	MaxDollarBet     float64 // absolute cap in dollars
	MaxPercentageBet float64 // cap as a percentage of bankroll, e.g. 10
}

// validProb reports whether p is a finite probability in [0, 1]
func validProb(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// Edge returns true - market as a fraction. Invalid inputs yield 0.
func Edge(trueProb, marketProb float64) float64 {
	if !validProb(trueProb) || !validProb(marketProb) {
		return 0
	}
	return trueProb - marketProb
}

// EdgePoints returns the edge in percentage points
func EdgePoints(trueProb, marketProb float64) float64 {
	return Edge(trueProb, marketProb) * 100
}

// Fraction returns the full-Kelly fraction of bankroll for buying a contract
// priced at marketProb that pays 1 with probability trueProb.
func Fraction(trueProb, marketProb float64) float64 {
	if !validProb(trueProb) || !validProb(marketProb) {
		return 0
	}
	if marketProb <= 0 || marketProb >= 1 {
		return 0
	}

	b := 1/marketProb - 1 // net odds
	if b <= 0 || math.IsInf(b, 0) {
		return 0
	}

	f := (trueProb*b - (1 - trueProb)) / b
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

// Size returns the recommended stake: bankroll x fraction x multiplier,
// clamped by both caps and floored at zero.
func Size(trueProb, marketProb, bankroll float64, limits Limits) float64 {
	if math.IsNaN(bankroll) || bankroll <= 0 || math.IsInf(bankroll, 0) {
		return 0
	}

	stake := bankroll * Fraction(trueProb, marketProb) * limits.KellyMultiplier
	stake = math.Min(stake, limits.MaxDollarBet)
	stake = math.Min(stake, bankroll*limits.MaxPercentageBet/100)

	if stake < 0 || math.IsNaN(stake) {
		return 0
	}
	return stake
}

// Payout returns the signed P&L of a settled binary contract bought at marketProb
func Payout(stake, marketProb float64, win bool) float64 {
	if !win {
		return -stake
	}
	if marketProb <= 0 || marketProb >= 1 {
		return 0
	}
	return stake * (1/marketProb - 1)
}

// AmericanToProb converts American odds to an implied probability
func AmericanToProb(odds float64) float64 {
	switch {
	case odds > 0:
		return 100 / (odds + 100)
	case odds < 0:
		return -odds / (-odds + 100)
	default:
		return 0
	}
}

// AmericanToDecimal converts American odds to decimal odds
func AmericanToDecimal(odds float64) decimal.Decimal {
	switch {
	case odds > 0:
		return decimal.NewFromFloat(odds).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
	case odds < 0:
		return decimal.NewFromInt(100).Div(decimal.NewFromFloat(-odds)).Add(decimal.NewFromInt(1))
	default:
		return decimal.Zero
	}
}

// DecimalToProb converts decimal odds to an implied probability
func DecimalToProb(odds decimal.Decimal) float64 {
	if odds.LessThanOrEqual(decimal.NewFromInt(1)) {
		return 0
	}
	return decimal.NewFromInt(1).Div(odds).InexactFloat64()
}

// Round rounds v half away from zero to places decimal places
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundCents rounds a dollar amount to whole cents
func RoundCents(v float64) float64 {
	return Round(v, 2)
}

// FloorCents truncates a non-negative stake to whole cents so rounding never
// lifts it over a cap
func FloorCents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return decimal.NewFromFloat(v).Truncate(2).InexactFloat64()
}
