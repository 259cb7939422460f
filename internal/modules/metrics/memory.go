package metrics

import (
	"context"
	"sync"
)

// MemoryProvider serves metrics from a map, for tests and static data.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string]map[string]float64
}

// NewMemoryProvider creates a provider over a copy of data.
func NewMemoryProvider(data map[string]map[string]float64) *MemoryProvider {
	p := &MemoryProvider{data: make(map[string]map[string]float64, len(data))}
	for symbol, values := range data {
		for name, v := range values {
			p.Set(symbol, name, v)
		}
	}
	return p
}

// Set stores one metric value.
func (p *MemoryProvider) Set(symbol, name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data[symbol] == nil {
		p.data[symbol] = make(map[string]float64)
	}
	p.data[symbol][name] = value
}

// GetMetrics returns the stored values among names.
func (p *MemoryProvider) GetMetrics(_ context.Context, symbol string, names []string) (map[string]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]float64, len(names))
	values := p.data[symbol]
	for _, name := range names {
		if v, ok := values[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}
