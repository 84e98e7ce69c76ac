package config

const (
	EnvPrefix = "LEDGERLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LEDGERLINE_DB_DSN"
	EnvDBHost = "LEDGERLINE_DB_HOST"
	EnvDBUser = "LEDGERLINE_DB_USER"
	EnvDBName = "LEDGERLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
