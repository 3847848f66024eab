package config

const EnvPrefix = "BEVPOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "BEVPOS_APP_ENV"
	EnvPort              = "BEVPOS_APP_PORT"
	EnvInventoryBaseURL  = "BEVPOS_INVENTORY_BASE_URL"
	EnvInventoryToken    = "BEVPOS_INVENTORY_API_TOKEN"
	EnvDefaultCommitMode = "BEVPOS_DEFAULT_COMMIT_MODE"
	EnvSellableCategory  = "BEVPOS_SELLABLE_CATEGORY_IDS"
	EnvSnapshotRefresh   = "BEVPOS_SNAPSHOT_REFRESH_INTERVAL"
	EnvPartialDueDays    = "BEVPOS_PARTIAL_DUE_DAYS"
	EnvDBDSN             = "BEVPOS_DB_DSN"
	EnvDBDriver          = "BEVPOS_DB_DRIVER"
	EnvRedisURL          = "BEVPOS_REDIS_URL"
)
