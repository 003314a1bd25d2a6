package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/learnhub/pkg/config"
	"github.com/Skotchmaster/learnhub/pkg/hash"
	"github.com/Skotchmaster/learnhub/pkg/ratelimit"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	AppEnv      string
	ServiceName string
	LogLevel    string
	Port        string
	FrontendURL string

	DBDriver    string
	DatabaseURL string

	JWTSecret        []byte
	JWTRefreshSecret []byte
	JWTExpire        time.Duration
	JWTRefreshExpire time.Duration
	BcryptCost       int

	AllowAdminSignup bool

	AuthRateMax    int
	AuthRateWindow time.Duration
	APIRateMax     int
	APIRateWindow  time.Duration
	RateSweepSpec  string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
}

// FromEnv reads the process environment without validating it.
func FromEnv() Config {
	secret := []byte(config.EnvDefault("JWT_SECRET", ""))
	refresh := []byte(config.EnvDefault("JWT_REFRESH_SECRET", ""))
	if len(refresh) == 0 {
		refresh = secret
	}

	return Config{
		AppEnv:      config.EnvDefault("APP_ENV", EnvDevelopment),
		ServiceName: config.EnvDefault("SERVICE_NAME", "learnhub"),
		LogLevel:    config.EnvDefault("LOG_LEVEL", "info"),
		Port:        config.EnvDefault("SERVER_PORT", "8080"),
		FrontendURL: config.EnvDefault("FRONTEND_URL", "http://localhost:3000"),

		DBDriver:    config.EnvDefault("DB_DRIVER", "pgx"),
		DatabaseURL: config.EnvDefault("DATABASE_URL", ""),

		JWTSecret:        secret,
		JWTRefreshSecret: refresh,
		JWTExpire:        config.EnvDurationDefault("JWT_EXPIRE", tokens.DefaultAccessTTL),
		JWTRefreshExpire: config.EnvDurationDefault("JWT_REFRESH_EXPIRE", tokens.DefaultRefreshTTL),
		BcryptCost:       config.EnvIntDefault("BCRYPT_COST", hash.DefaultCost),

		AllowAdminSignup: config.EnvBoolDefault("ALLOW_ADMIN_SIGNUP", false),

		AuthRateMax:    config.EnvIntDefault("RATE_LIMIT_AUTH_MAX", ratelimit.AuthPolicy.Max),
		AuthRateWindow: config.EnvDurationDefault("RATE_LIMIT_AUTH_WINDOW", ratelimit.AuthPolicy.Window),
		APIRateMax:     config.EnvIntDefault("RATE_LIMIT_API_MAX", ratelimit.APIPolicy.Max),
		APIRateWindow:  config.EnvDurationDefault("RATE_LIMIT_API_WINDOW", ratelimit.APIPolicy.Window),
		RateSweepSpec:  config.EnvDefault("RATE_LIMIT_SWEEP", ratelimit.DefaultSweepSpec),

		KafkaBrokers: config.CSV(config.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:      config.EnvDefault("ES_URL", ""),
		ESUser:     config.EnvDefault("ES_USER", ""),
		ESPassword: config.EnvDefault("ES_PASSWORD", ""),
	}
}

// Load reads .env when present, then the environment, and exits on
// missing required settings.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found, using process environment")
	}

	cfg := FromEnv()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.WarnShort(cfg.JWTSecret, "JWT_SECRET", 32)
	config.WarnShort(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET", 32)
	return cfg
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// AuthPolicy is the strict limiter for credential endpoints. It only runs
// in production.
func (c Config) AuthPolicy() ratelimit.Policy {
	p := ratelimit.AuthPolicy
	p.Max = c.AuthRateMax
	p.Window = c.AuthRateWindow
	p.Disabled = !c.IsProduction()
	return p
}

func (c Config) APIPolicy() ratelimit.Policy {
	p := ratelimit.APIPolicy
	p.Max = c.APIRateMax
	p.Window = c.APIRateWindow
	return p
}
