package domain

import "time"

// EnrichedPosition combines a held position with its security metadata and
// current price, so calculators never need a second lookup.
type EnrichedPosition struct {
	// Core position data
	Symbol            string     `json:"symbol"`
	Quantity          float64    `json:"quantity"`     // Current shares held
	AverageCost       float64    `json:"average_cost"` // Cost basis per share (EUR)
	Currency          string     `json:"currency"`
	MarketValueEUR    float64    `json:"market_value_eur"`
	FirstBoughtAt     *time.Time `json:"first_bought_at,omitempty"`
	LastSoldAt        *time.Time `json:"last_sold_at,omitempty"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`

	// Security metadata
	SecurityName string `json:"security_name"`
	Country      string `json:"country"`
	Industry     string `json:"industry"` // Comma-separated for multiple
	AllowBuy     bool   `json:"allow_buy"`
	AllowSell    bool   `json:"allow_sell"`
	MinLot       int    `json:"min_lot"`

	// Market data
	CurrentPrice float64 `json:"current_price"` // EUR

	// Calculated during enrichment
	WeightInPortfolio float64 `json:"weight_in_portfolio"`
}

// CanBuy returns true if buying is allowed for this security.
func (e *EnrichedPosition) CanBuy() bool {
	return e.AllowBuy
}

// CanSell returns true if selling is allowed for this security.
func (e *EnrichedPosition) CanSell() bool {
	return e.AllowSell
}

// GainPercent calculates the gain/loss percentage from cost basis.
// Returns 0.0 if AverageCost is zero or negative.
// Formula: (CurrentPrice - AverageCost) / AverageCost
func (e *EnrichedPosition) GainPercent() float64 {
	if e.AverageCost <= 0 {
		return 0
	}
	return (e.CurrentPrice - e.AverageCost) / e.AverageCost
}

// Lot returns the minimum lot size, at least 1
func (e *EnrichedPosition) Lot() int {
	if e.MinLot < 1 {
		return 1
	}
	return e.MinLot
}

// DaysSince returns whole days between t and now, or -1 when t is nil
func DaysSince(t *time.Time, now time.Time) int {
	if t == nil {
		return -1
	}
	return int(now.Sub(*t).Hours() / 24)
}
