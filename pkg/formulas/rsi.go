// Package formulas holds technical indicator helpers over daily closes.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultRSIPeriod is the conventional RSI look-back
const DefaultRSIPeriod = 14

// CalculateRSI calculates the Relative Strength Index.
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Args:
//   - closes: Array of closing prices, oldest first
//   - length: RSI period (typically 14)
//
// Returns:
//   - Current RSI value (0-100) or nil if insufficient data
func CalculateRSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)

	if len(rsi) > 0 && !math.IsNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}
