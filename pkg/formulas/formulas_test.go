package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRSI(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, CalculateRSI([]float64{1, 2, 3}, DefaultRSIPeriod))
		assert.Nil(t, CalculateRSI([]float64{1, 2, 3}, 0))
	})

	t.Run("steady decline is oversold", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 - float64(i)*2 + float64(i%2)*0.5
		}
		rsi := CalculateRSI(closes, DefaultRSIPeriod)
		require.NotNil(t, rsi)
		assert.Less(t, *rsi, 30.0)
	})

	t.Run("steady rise is overbought", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i)*2 - float64(i%2)*0.5
		}
		rsi := CalculateRSI(closes, DefaultRSIPeriod)
		require.NotNil(t, rsi)
		assert.Greater(t, *rsi, 70.0)
	})
}

func TestDailyReturns(t *testing.T) {
	assert.Nil(t, DailyReturns([]float64{100}))

	returns := DailyReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Len(t, DailyReturns([]float64{100, 0, 50, 55}), 1)
}
