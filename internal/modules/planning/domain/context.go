package domain

import (
	"math"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// Security is a member of the investment universe with its trading permissions.
type Security struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	Industry  string `json:"industry"` // Comma-separated for multiple
	Currency  string `json:"currency"`
	AllowBuy  bool   `json:"allow_buy"`
	AllowSell bool   `json:"allow_sell"`
	MinLot    int    `json:"min_lot"`

	// PriorityMultiplier scales buy priority up and sell priority down; 0 means 1
	PriorityMultiplier float64 `json:"priority_multiplier,omitempty"`
}

// Multiplier returns the priority multiplier, defaulting to 1
func (s Security) Multiplier() float64 {
	if s.PriorityMultiplier <= 0 {
		return 1.0
	}
	return s.PriorityMultiplier
}

// Lot returns the minimum lot size, at least 1
func (s Security) Lot() int {
	if s.MinLot < 1 {
		return 1
	}
	return s.MinLot
}

// PendingOrder is an order placed with the broker but not yet filled
type PendingOrder struct {
	Symbol   string    `json:"symbol"`
	Side     TradeSide `json:"side"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
}

// MarketRegime is the prevailing market direction used by regime-aware patterns.
type MarketRegime string

const (
	MarketRegimeBull     MarketRegime = "bull"
	MarketRegimeBear     MarketRegime = "bear"
	MarketRegimeSideways MarketRegime = "sideways"
)

// OpportunityContext contains all data needed by opportunity calculators
// to identify trading opportunities (buys, sells, rebalancing, etc.).
//
// All monetary values are in EUR and every map is keyed by symbol.
type OpportunityContext struct {
	// Portfolio state
	PortfolioContext       *models.PortfolioContext `json:"portfolio_context"`
	Positions              []EnrichedPosition       `json:"positions"`
	Securities             []Security               `json:"securities"`
	AvailableCashEUR       float64                  `json:"available_cash_eur"`
	TotalPortfolioValueEUR float64                  `json:"total_portfolio_value_eur"`
	CashBalances           map[string]float64       `json:"cash_balances,omitempty"` // Currency -> amount
	PendingOrders          []PendingOrder           `json:"pending_orders,omitempty"`

	// Market data
	CurrentPrices  map[string]float64   `json:"current_prices"`
	StocksBySymbol map[string]Security  `json:"-"`
	PriceHistory   map[string][]float64 `json:"price_history,omitempty"` // Daily closes, oldest first
	MarketRegime   MarketRegime         `json:"market_regime,omitempty"` // Empty when no regime was detected

	// Optional enrichment data
	SecurityScores  map[string]float64  `json:"security_scores,omitempty"`
	CountryWeights  map[string]float64  `json:"country_weights,omitempty"` // Target weights by country group
	CountryToGroup  map[string]string   `json:"country_to_group,omitempty"`
	IndustryWeights map[string]float64  `json:"industry_weights,omitempty"` // Target weights by industry group
	IndustryToGroup map[string]string   `json:"industry_to_group,omitempty"`
	TargetWeights   map[string]float64  `json:"target_weights,omitempty"` // Optimizer target weights
	Metrics         models.MetricsCache `json:"metrics,omitempty"`

	// Constraints
	IneligibleSymbols map[string]bool `json:"ineligible_symbols"` // Can't sell these
	RecentlySold      map[string]bool `json:"recently_sold"`      // Recently sold (cooldown)
	RecentlyBought    map[string]bool `json:"recently_bought"`    // Recently bought

	// Configuration
	TransactionCostFixed   float64 `json:"transaction_cost_fixed"`
	TransactionCostPercent float64 `json:"transaction_cost_percent"`
	AllowSell              bool    `json:"allow_sell"`
	AllowBuy               bool    `json:"allow_buy"`
}

// MinTradeAmountFloor is the smallest trade amount ever proposed, in EUR
const MinTradeAmountFloor = 250.0

// NewOpportunityContext creates a new OpportunityContext with defaults.
func NewOpportunityContext(
	portfolioContext *models.PortfolioContext,
	positions []EnrichedPosition,
	securities []Security,
	availableCashEUR float64,
	totalPortfolioValueEUR float64,
	currentPrices map[string]float64,
) *OpportunityContext {
	ctx := &OpportunityContext{
		PortfolioContext:       portfolioContext,
		Positions:              positions,
		Securities:             securities,
		AvailableCashEUR:       availableCashEUR,
		TotalPortfolioValueEUR: totalPortfolioValueEUR,
		CurrentPrices:          currentPrices,
		IneligibleSymbols:      make(map[string]bool),
		RecentlySold:           make(map[string]bool),
		RecentlyBought:         make(map[string]bool),
		TransactionCostFixed:   2.0,
		TransactionCostPercent: 0.002,
		AllowSell:              true,
		AllowBuy:               true,
	}
	ctx.IndexSecurities()
	return ctx
}

// IndexSecurities (re)builds StocksBySymbol from Securities.
// Contexts decoded from JSON need this before use.
func (ctx *OpportunityContext) IndexSecurities() {
	ctx.StocksBySymbol = make(map[string]Security, len(ctx.Securities))
	for _, sec := range ctx.Securities {
		if sec.Symbol != "" {
			ctx.StocksBySymbol[sec.Symbol] = sec
		}
	}
	if ctx.IneligibleSymbols == nil {
		ctx.IneligibleSymbols = make(map[string]bool)
	}
	if ctx.RecentlySold == nil {
		ctx.RecentlySold = make(map[string]bool)
	}
	if ctx.RecentlyBought == nil {
		ctx.RecentlyBought = make(map[string]bool)
	}
}

// ApplyConfig applies configuration values to the OpportunityContext.
func (ctx *OpportunityContext) ApplyConfig(config *PlannerConfiguration) {
	if config == nil {
		return
	}
	ctx.TransactionCostFixed = config.TransactionCostFixed
	ctx.TransactionCostPercent = config.TransactionCostPercent
	ctx.AllowSell = config.AllowSell
	ctx.AllowBuy = config.AllowBuy
}

// Security looks up a universe security by symbol.
func (ctx *OpportunityContext) Security(symbol string) (Security, bool) {
	sec, ok := ctx.StocksBySymbol[symbol]
	return sec, ok
}

// Position looks up a held position by symbol.
func (ctx *OpportunityContext) Position(symbol string) (*EnrichedPosition, bool) {
	for i := range ctx.Positions {
		if ctx.Positions[i].Symbol == symbol {
			return &ctx.Positions[i], true
		}
	}
	return nil, false
}

// Price returns the current price of a symbol, if known and positive.
func (ctx *OpportunityContext) Price(symbol string) (float64, bool) {
	price, ok := ctx.CurrentPrices[symbol]
	return price, ok && price > 0
}

// CalculateMinTradeAmount calculates the minimum trade amount where transaction costs are acceptable:
//
//	minTrade = fixedCost / (maxCostRatio - transactionCostPercent)
//
// With default 1% max cost ratio, 2 EUR fixed, 0.2% variable:
//
//	minTrade = 2 / (0.01 - 0.002) = 2 / 0.008 = 250 EUR
//
// The result is never below MinTradeAmountFloor.
func (ctx *OpportunityContext) CalculateMinTradeAmount(maxCostRatio float64) float64 {
	return CalculateMinTradeAmount(ctx.TransactionCostFixed, ctx.TransactionCostPercent, maxCostRatio)
}

// CalculateMinTradeAmount is the context-free form of OpportunityContext.CalculateMinTradeAmount
func CalculateMinTradeAmount(fixed, percent, maxCostRatio float64) float64 {
	if maxCostRatio <= 0 {
		maxCostRatio = 0.01 // Default 1%
	}
	denominator := maxCostRatio - percent
	if denominator <= 0 {
		// If variable cost exceeds max ratio, return a high minimum
		return 1000.0
	}
	return math.Max(MinTradeAmountFloor, fixed/denominator)
}

// PortfolioSnapshot returns the portfolio context used for scoring, building
// one from the positions and allocation targets when none was supplied.
func (ctx *OpportunityContext) PortfolioSnapshot() models.PortfolioContext {
	if ctx.PortfolioContext != nil {
		return *ctx.PortfolioContext
	}

	pc := models.PortfolioContext{
		CountryWeights:     ctx.CountryWeights,
		IndustryWeights:    ctx.IndustryWeights,
		Positions:          make(map[string]float64, len(ctx.Positions)),
		SecurityCountries:  make(map[string]string, len(ctx.Positions)),
		SecurityIndustries: make(map[string]string, len(ctx.Positions)),
		SecurityScores:     ctx.SecurityScores,
		CountryToGroup:     ctx.CountryToGroup,
		IndustryToGroup:    ctx.IndustryToGroup,
		PositionAvgPrices:  make(map[string]float64, len(ctx.Positions)),
		CurrentPrices:      ctx.CurrentPrices,
		TotalValue:         ctx.TotalPortfolioValueEUR,
	}

	dividends := make(map[string]float64)
	for _, pos := range ctx.Positions {
		pc.Positions[pos.Symbol] = pos.MarketValueEUR
		pc.PositionAvgPrices[pos.Symbol] = pos.AverageCost
		if pos.Country != "" {
			pc.SecurityCountries[pos.Symbol] = pos.Country
		}
		if pos.Industry != "" {
			pc.SecurityIndustries[pos.Symbol] = pos.Industry
		}
		if y, ok := ctx.Metrics.Get(pos.Symbol, models.MetricDividendYield); ok {
			dividends[pos.Symbol] = y
		}
	}
	if len(dividends) > 0 {
		pc.SecurityDividends = dividends
	}
	return pc
}

// EvaluationContext builds the evaluator input for this opportunity context.
func (ctx *OpportunityContext) EvaluationContext(config *PlannerConfiguration) models.EvaluationContext {
	securities := make([]models.Security, 0, len(ctx.Securities))
	bySymbol := make(map[string]models.Security, len(ctx.Securities))
	for _, sec := range ctx.Securities {
		s := models.Security{
			Symbol:   sec.Symbol,
			Name:     sec.Name,
			Country:  sec.Country,
			Industry: sec.Industry,
			Currency: sec.Currency,
		}
		securities = append(securities, s)
		bySymbol[sec.Symbol] = s
	}

	evalCtx := models.EvaluationContext{
		PortfolioContext:       ctx.PortfolioSnapshot(),
		CurrentPrices:          ctx.CurrentPrices,
		StocksBySymbol:         bySymbol,
		Metrics:                ctx.Metrics,
		Securities:             securities,
		AvailableCashEUR:       ctx.AvailableCashEUR,
		TotalPortfolioValueEUR: ctx.TotalPortfolioValueEUR,
		TransactionCostFixed:   ctx.TransactionCostFixed,
		TransactionCostPercent: ctx.TransactionCostPercent,
	}
	if config != nil {
		evalCtx.TransactionCostFixed = config.TransactionCostFixed
		evalCtx.TransactionCostPercent = config.TransactionCostPercent
		evalCtx.CostPenaltyFactor = config.CostPenaltyFactor
		evalCtx.Scoring = config.ScoringOptions()
	}
	return evalCtx
}
