package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/beverage-pos/pkg/enums"
)

type Config struct {
	App          AppConfig
	Inventory    InventoryConfig
	POS          POSConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	if err := cfg.POS.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BEVPOS_APP_ENV" required:"true"`
	Port         string   `envconfig:"BEVPOS_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"BEVPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BEVPOS_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"BEVPOS_LOG_FORMAT" default:"json"`
	InstanceID   string   `envconfig:"BEVPOS_INSTANCE_ID" default:"terminal-1"`
	CORSOrigins  []string `envconfig:"BEVPOS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// InventoryConfig points at the remote catalog, stock and sale-commit API.
type InventoryConfig struct {
	BaseURL        string        `envconfig:"BEVPOS_INVENTORY_BASE_URL" required:"true"`
	APIToken       string        `envconfig:"BEVPOS_INVENTORY_API_TOKEN"`
	RequestTimeout time.Duration `envconfig:"BEVPOS_INVENTORY_REQUEST_TIMEOUT" default:"10s"`
	BulkBatchSize  int           `envconfig:"BEVPOS_INVENTORY_BULK_BATCH_SIZE" default:"200"`
}

func (i InventoryConfig) validate() error {
	parsed, err := url.Parse(i.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvInventoryBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvInventoryBaseURL)
	}
	return nil
}

type POSConfig struct {
	DefaultCommitMode     string        `envconfig:"BEVPOS_DEFAULT_COMMIT_MODE" default:"complete"`
	SellableCategoryIDs   []int64       `envconfig:"BEVPOS_SELLABLE_CATEGORY_IDS"`
	SnapshotRefresh       time.Duration `envconfig:"BEVPOS_SNAPSHOT_REFRESH_INTERVAL" default:"2m"`
	CatalogReload         time.Duration `envconfig:"BEVPOS_CATALOG_RELOAD_INTERVAL" default:"15m"`
	PostCommitDelay       time.Duration `envconfig:"BEVPOS_POST_COMMIT_REFRESH_DELAY" default:"1500ms"`
	CurrencyCode          string        `envconfig:"BEVPOS_CURRENCY_CODE" default:"MGA"`
	PartialDueDays        int           `envconfig:"BEVPOS_PARTIAL_DUE_DAYS" default:"30"`
	RequireCustomerOnHold bool          `envconfig:"BEVPOS_REQUIRE_CUSTOMER_ON_PENDING" default:"true"`
	SessionIdleTimeout    time.Duration `envconfig:"BEVPOS_SESSION_IDLE_TIMEOUT" default:"12h"`
	SessionSweepInterval  time.Duration `envconfig:"BEVPOS_SESSION_SWEEP_INTERVAL" default:"5m"`
}

// CommitMode returns the parsed default commit mode.
func (p POSConfig) CommitMode() enums.CommitMode {
	mode, err := enums.ParseCommitMode(strings.ToLower(strings.TrimSpace(p.DefaultCommitMode)))
	if err != nil {
		return enums.CommitModeComplete
	}
	return mode
}

func (p POSConfig) validate() error {
	if _, err := enums.ParseCommitMode(strings.ToLower(strings.TrimSpace(p.DefaultCommitMode))); err != nil {
		return fmt.Errorf("%s: %w", EnvDefaultCommitMode, err)
	}
	if p.PartialDueDays < 0 {
		return fmt.Errorf("%s must be non-negative", EnvPartialDueDays)
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"BEVPOS_DB_DSN" required:"true"`
	Driver string `envconfig:"BEVPOS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"BEVPOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"BEVPOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"BEVPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BEVPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BEVPOS_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s", EnvDBDriver, DBDriverPostgres, DBDriverSQLite)
}

// IsSQLite reports whether the journal runs on the embedded driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL              string        `envconfig:"BEVPOS_REDIS_URL"`
	Address          string        `envconfig:"BEVPOS_REDIS_ADDR"`
	Password         string        `envconfig:"BEVPOS_REDIS_PASSWORD"`
	DB               int           `envconfig:"BEVPOS_REDIS_DB" default:"0"`
	PoolSize         int           `envconfig:"BEVPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns     int           `envconfig:"BEVPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout      time.Duration `envconfig:"BEVPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout      time.Duration `envconfig:"BEVPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout     time.Duration `envconfig:"BEVPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
	SnapshotCacheTTL time.Duration `envconfig:"BEVPOS_REDIS_SNAPSHOT_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BEVPOS_AUTO_MIGRATE" default:"false"`
}
