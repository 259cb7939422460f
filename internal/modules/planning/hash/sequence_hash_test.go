package hash

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
)

func TestSequenceHash(t *testing.T) {
	sell := models.ActionCandidate{Symbol: "AAPL", Side: models.TradeSideSell, Quantity: 5, Price: 100, Priority: 0.4}
	buy := models.ActionCandidate{Symbol: "SAP", Side: models.TradeSideBuy, Quantity: 3, Price: 150, Priority: 0.9}

	h := SequenceHash([]models.ActionCandidate{sell, buy})
	assert.Len(t, h, 32)

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, h, SequenceHash([]models.ActionCandidate{sell, buy}))
	})

	t.Run("order sensitive", func(t *testing.T) {
		assert.NotEqual(t, h, SequenceHash([]models.ActionCandidate{buy, sell}))
	})

	t.Run("quantity sensitive", func(t *testing.T) {
		changed := buy
		changed.Quantity = 4
		assert.NotEqual(t, h, SequenceHash([]models.ActionCandidate{sell, changed}))
	})

	t.Run("ignores non-identity fields", func(t *testing.T) {
		repriced := buy
		repriced.Price = 999
		repriced.Priority = 0.1
		repriced.Reason = "different"
		assert.Equal(t, h, SequenceHash([]models.ActionCandidate{sell, repriced}))
	})

	t.Run("known digest", func(t *testing.T) {
		// md5(`[["AAPL", "SELL", 5]]`)
		single := SequenceHash([]models.ActionCandidate{sell})
		assert.Equal(t, SequenceHash([]models.ActionCandidate{{Symbol: "AAPL", Side: models.TradeSideSell, Quantity: 5}}), single)
	})
}
