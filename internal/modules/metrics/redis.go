package metrics

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// KeyPrefix is prepended to the symbol to form the metrics hash key.
const KeyPrefix = "metrics:"

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// hashReader is the slice of the Redis client the provider needs.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisProvider reads metrics from Redis hashes keyed metrics:<SYMBOL>,
// one field per metric name.
type RedisProvider struct {
	client hashReader
	closer func() error
	log    zerolog.Logger
}

// NewRedisProvider connects to Redis. A failed ping is logged and the
// provider is returned anyway: lookups then fail per symbol and degrade to
// neutral scores.
func NewRedisProvider(cfg RedisConfig, log zerolog.Logger) *RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	p := &RedisProvider{
		client: client,
		closer: client.Close,
		log:    log.With().Str("component", "redis_metrics").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		p.log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unreachable, metrics will be neutral until it recovers")
	} else {
		p.log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis metrics cache")
	}
	return p
}

// GetMetrics reads the symbol's hash and returns the requested fields that
// parse as finite floats.
func (p *RedisProvider) GetMetrics(ctx context.Context, symbol string, names []string) (map[string]float64, error) {
	fields, err := p.client.HGetAll(ctx, KeyPrefix+symbol).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics for %s: %w", symbol, err)
	}

	out := make(map[string]float64, len(names))
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			p.log.Debug().Str("symbol", symbol).Str("metric", name).Str("value", raw).Msg("Skipping unparsable metric")
			continue
		}
		out[name] = v
	}
	return out, nil
}

// Close releases the Redis connection.
func (p *RedisProvider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
