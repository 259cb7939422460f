package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{
	"positions": [
		{"symbol": "A", "quantity": 10, "current_price": 10, "market_value_eur": 100, "country": "US"}
	],
	"securities": [
		{"symbol": "A", "country": "US", "currency": "EUR", "allow_buy": true, "allow_sell": true}
	],
	"available_cash_eur": 250,
	"total_portfolio_value_eur": 350
}`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileContextProvider_Load(t *testing.T) {
	provider := NewFileContextProvider(writeSnapshot(t, snapshot), zerolog.Nop())

	ctx, err := provider.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, ctx.Positions, 1)
	assert.Equal(t, "A", ctx.Positions[0].Symbol)
	assert.Equal(t, 250.0, ctx.AvailableCashEUR)
	assert.NotNil(t, ctx.CurrentPrices)
	assert.Contains(t, ctx.StocksBySymbol, "A")
}

func TestFileContextProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		msg  string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") }, "failed to read"},
		{"bad json", func(t *testing.T) string { return writeSnapshot(t, "{not json") }, "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileContextProvider(tt.path(t), zerolog.Nop()).Load(context.Background())
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestFileContextProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileContextProvider(writeSnapshot(t, snapshot), zerolog.Nop()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
