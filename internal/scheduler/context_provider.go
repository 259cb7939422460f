package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ContextProvider supplies the opportunity context a planner run works on.
type ContextProvider interface {
	Load(ctx context.Context) (*domain.OpportunityContext, error)
}

// FileContextProvider reads the opportunity context from a JSON snapshot on
// disk. The file is re-read on every Load so an external process can replace
// it between runs.
type FileContextProvider struct {
	path string
	log  zerolog.Logger
}

// NewFileContextProvider creates a provider for the snapshot at path.
func NewFileContextProvider(path string, log zerolog.Logger) *FileContextProvider {
	return &FileContextProvider{
		path: path,
		log:  log.With().Str("component", "context_provider").Str("path", path).Logger(),
	}
}

// Load decodes the snapshot and indexes its securities.
func (p *FileContextProvider) Load(ctx context.Context) (*domain.OpportunityContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio snapshot: %w", err)
	}

	opportunityCtx := domain.NewOpportunityContext(nil, nil, nil, 0, 0, nil)
	if err := json.Unmarshal(data, opportunityCtx); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio snapshot: %w", err)
	}
	if opportunityCtx.CurrentPrices == nil {
		opportunityCtx.CurrentPrices = make(map[string]float64)
	}
	opportunityCtx.IndexSecurities()

	p.log.Debug().
		Int("positions", len(opportunityCtx.Positions)).
		Int("securities", len(opportunityCtx.Securities)).
		Float64("available_cash", opportunityCtx.AvailableCashEUR).
		Msg("Loaded portfolio snapshot")

	return opportunityCtx, nil
}
