// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for planner.db and backup staging (always absolute)
	LogLevel      string
	LogPretty     bool
	Port          int
	EvaluatorPort int
	DBDriver      string // "sqlite" (modernc, default) or "sqlite3" (mattn)

	// Remote evaluation service. Empty URL means evaluate locally.
	EvaluatorURL      string
	EvaluatorTimeout  time.Duration
	EvaluationWorkers int // 0 = one per logical CPU

	// Scheduling
	PlannerSchedule         string // cron expression with seconds field
	PlannerMaxBatchesPerRun int
	PlannerRunTimeout       time.Duration
	MaintenanceSchedule     string
	SnapshotPath            string // JSON portfolio snapshot consumed by the batch job

	Version string
	DevMode bool

	Redis   RedisConfig
	Backup  BackupConfig
	Planner *domain.PlannerConfiguration
}

// RedisConfig configures the metrics cache backed by Redis
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// BackupConfig configures S3-compatible planner database backups
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	Endpoint        string // Empty for AWS S3, set for R2/MinIO
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogPretty:               getEnvAsBool("LOG_PRETTY", false),
		Port:                    getEnvAsInt("PORT", 8001),
		EvaluatorPort:           getEnvAsInt("EVALUATOR_PORT", 9000),
		DBDriver:                getEnv("DB_DRIVER", "sqlite"),
		EvaluatorURL:            strings.TrimRight(getEnv("EVALUATOR_URL", ""), "/"),
		EvaluatorTimeout:        time.Duration(getEnvAsInt("EVALUATOR_TIMEOUT_SECONDS", 120)) * time.Second,
		EvaluationWorkers:       getEnvAsInt("EVALUATION_WORKERS", 0),
		PlannerSchedule:         getEnv("PLANNER_SCHEDULE", "0 */5 * * * *"),
		PlannerMaxBatchesPerRun: getEnvAsInt("PLANNER_MAX_BATCHES_PER_RUN", 10),
		PlannerRunTimeout:       time.Duration(getEnvAsInt("PLANNER_RUN_TIMEOUT_SECONDS", 240)) * time.Second,
		MaintenanceSchedule:     getEnv("MAINTENANCE_SCHEDULE", "0 30 2 * * *"),
		Version:                 getEnv("VERSION", "dev"),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		SnapshotPath:            getEnv("SNAPSHOT_PATH", filepath.Join(absDataDir, "snapshot.json")),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "planner-backups/"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		Planner: loadPlannerConfiguration(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.EvaluatorPort <= 0 || c.EvaluatorPort > 65535 {
		return fmt.Errorf("invalid EVALUATOR_PORT %d", c.EvaluatorPort)
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "sqlite3" {
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or sqlite3)", c.DBDriver)
	}
	if c.EvaluatorTimeout <= 0 {
		return fmt.Errorf("EVALUATOR_TIMEOUT_SECONDS must be positive")
	}
	if c.PlannerMaxBatchesPerRun <= 0 {
		return fmt.Errorf("PLANNER_MAX_BATCHES_PER_RUN must be positive")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" || c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backups enabled but S3 bucket or credentials are missing")
		}
	}
	if err := c.Planner.Validate(); err != nil {
		return fmt.Errorf("invalid planner configuration: %w", err)
	}
	return nil
}

// loadPlannerConfiguration starts from the planner defaults and applies PLANNER_* overrides
func loadPlannerConfiguration() *domain.PlannerConfiguration {
	p := domain.NewDefaultConfiguration()

	p.MaxDepth = getEnvAsInt("PLANNER_MAX_DEPTH", p.MaxDepth)
	p.MaxOpportunitiesPerCategory = getEnvAsInt("PLANNER_MAX_OPPORTUNITIES_PER_CATEGORY", p.MaxOpportunitiesPerCategory)
	p.PriorityThreshold = getEnvAsFloat("PLANNER_PRIORITY_THRESHOLD", p.PriorityThreshold)
	p.TransactionCostFixed = getEnvAsFloat("PLANNER_TRANSACTION_COST_FIXED", p.TransactionCostFixed)
	p.TransactionCostPercent = getEnvAsFloat("PLANNER_TRANSACTION_COST_PERCENT", p.TransactionCostPercent)
	p.BeamWidth = getEnvAsInt("PLANNER_BEAM_WIDTH", p.BeamWidth)
	p.BatchSize = getEnvAsInt("PLANNER_BATCH_SIZE", p.BatchSize)
	p.PlateauThreshold = getEnvAsInt("PLANNER_PLATEAU_THRESHOLD", p.PlateauThreshold)
	p.MinEvaluations = getEnvAsInt("PLANNER_MIN_EVALUATIONS", p.MinEvaluations)
	p.SearchMode = domain.SearchMode(getEnv("PLANNER_SEARCH_MODE", string(p.SearchMode)))
	p.EvaluationMode = domain.EvaluationMode(getEnv("PLANNER_EVALUATION_MODE", string(p.EvaluationMode)))
	p.MonteCarloPaths = getEnvAsInt("PLANNER_MONTE_CARLO_PATHS", p.MonteCarloPaths)
	p.CostPenaltyFactor = getEnvAsFloat("PLANNER_COST_PENALTY_FACTOR", p.CostPenaltyFactor)
	p.RiskProfile = getEnv("PLANNER_RISK_PROFILE", p.RiskProfile)
	p.EnableMultiTimeframe = getEnvAsBool("PLANNER_ENABLE_MULTI_TIMEFRAME", p.EnableMultiTimeframe)
	p.EnablePartialExecution = getEnvAsBool("PLANNER_ENABLE_PARTIAL_EXECUTION", p.EnablePartialExecution)
	p.EnableConstraintRelaxationGenerator = getEnvAsBool("PLANNER_ENABLE_CONSTRAINT_RELAXATION", p.EnableConstraintRelaxationGenerator)
	p.EnableCorrelationAwareFilter = getEnvAsBool("PLANNER_ENABLE_CORRELATION_FILTER", p.EnableCorrelationAwareFilter)

	return p
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
