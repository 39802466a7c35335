package domain

import (
	"math"
	"strconv"
)

// NotAvailable is the display marker for undefined rates and durations.
const NotAvailable = "N/A"

// Rate is a ratio kept as its integer parts so it stays exact until display.
// A zero denominator makes the rate undefined.
type Rate struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// NewRate builds a rate from numerator and denominator.
func NewRate(num, den int) Rate {
	return Rate{Num: num, Den: den}
}

// Defined reports whether the denominator is non-zero.
func (r Rate) Defined() bool {
	return r.Den != 0
}

// Percent returns the rate as a percentage rounded to 2 decimals.
func (r Rate) Percent() (float64, bool) {
	if !r.Defined() {
		return 0, false
	}
	return Round2(float64(r.Num) * 100 / float64(r.Den)), true
}

// String renders the rate as "80.00%" or N/A.
func (r Rate) String() string {
	pct, ok := r.Percent()
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}

// Minutes is an optional duration expressed in minutes, rounded to 2 decimals.
type Minutes struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// MinutesFromSeconds converts seconds to minutes using the report rounding rule.
func MinutesFromSeconds(seconds float64) Minutes {
	return Minutes{Value: Round2(seconds / 60), Valid: true}
}

// String renders the duration or N/A.
func (m Minutes) String() string {
	if !m.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(m.Value, 'f', 2, 64)
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
