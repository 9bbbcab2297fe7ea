// Package pair implements the ordered (base, quote) trading symbol.
// In this system's convention prices are quoted in the first symbol
// (e.g. "BTC" in BTC-ETH), and BaseOf returns the second symbol, the
// counter asset that grid sizing is denominated in.
package pair

import (
	"fmt"
	"strings"
)

// Pair is an ordered BASE-QUOTE symbol, canonical string form
// "BASE-QUOTE" (e.g. "BTC-ETH").
type Pair struct {
	Base  string
	Quote string
}

// Parse parses "BASE-QUOTE" into a Pair.
func Parse(s string) (Pair, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("pair: malformed symbol %q, want BASE-QUOTE", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// String renders the canonical BASE-QUOTE form.
func (p Pair) String() string {
	return p.Base + "-" + p.Quote
}

// BaseOf returns the counter currency that grid sizing and core
// positions are denominated in. Per this system's convention, the
// quote asset (second symbol) is the one being accumulated/spent on
// each rung — e.g. baseOf(BTC-ETH) = "ETH".
func BaseOf(p Pair) string {
	return p.Quote
}
