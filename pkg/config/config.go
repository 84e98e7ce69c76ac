package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Features FeatureFlagsConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	Company  CompanyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEDGERLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"LEDGERLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LEDGERLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEDGERLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LEDGERLINE_DB_DSN"`
	Driver string `envconfig:"LEDGERLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEDGERLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"LEDGERLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEDGERLINE_DB_USER"`
	LegacyPassword string `envconfig:"LEDGERLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEDGERLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEDGERLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEDGERLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEDGERLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEDGERLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEDGERLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LEDGERLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEDGERLINE_REDIS_ADDR"`
	Password     string        `envconfig:"LEDGERLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEDGERLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEDGERLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEDGERLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEDGERLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEDGERLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEDGERLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LEDGERLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LEDGERLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LEDGERLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LEDGERLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LEDGERLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LEDGERLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LEDGERLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LEDGERLINE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LEDGERLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LEDGERLINE_AUTO_MIGRATE" default:"false"`
}

// StripeConfig carries process-level gateway defaults. Per-user settings
// override the API key at operation time; the webhook signing secret is
// shared by the platform's single webhook endpoint.
type StripeConfig struct {
	APIKey        string `envconfig:"LEDGERLINE_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"LEDGERLINE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"LEDGERLINE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host        string        `envconfig:"LEDGERLINE_SMTP_HOST"`
	Port        int           `envconfig:"LEDGERLINE_SMTP_PORT" default:"587"`
	Username    string        `envconfig:"LEDGERLINE_SMTP_USERNAME"`
	Password    string        `envconfig:"LEDGERLINE_SMTP_PASSWORD"`
	DefaultFrom string        `envconfig:"LEDGERLINE_SMTP_FROM_EMAIL"`
	SendTimeout time.Duration `envconfig:"LEDGERLINE_SMTP_SEND_TIMEOUT" default:"15s"`
}

// CompanyConfig holds display defaults used when a user has not filled in
// their settings yet.
type CompanyConfig struct {
	Name          string  `envconfig:"LEDGERLINE_COMPANY_NAME" default:""`
	TaxRate       float64 `envconfig:"LEDGERLINE_COMPANY_TAX_RATE" default:"0"`
	ResetBaseURL  string  `envconfig:"LEDGERLINE_RESET_BASE_URL" default:""`
	SupportEmail  string  `envconfig:"LEDGERLINE_SUPPORT_EMAIL" default:""`
	InvoiceFooter string  `envconfig:"LEDGERLINE_INVOICE_FOOTER" default:""`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
