package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "SHELFWISE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SHELFWISE_DB_DSN"
	EnvDBHost = "SHELFWISE_DB_HOST"
	EnvDBUser = "SHELFWISE_DB_USER"
	EnvDBName = "SHELFWISE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// Config is the root configuration loaded from the environment.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Gateway      GatewayConfig
	OTP          OTPConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

// Load parses the environment into a Config.
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
	Env          string `envconfig:"SHELFWISE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHELFWISE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHELFWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHELFWISE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHELFWISE_DB_DSN"`
	Driver string `envconfig:"SHELFWISE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHELFWISE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHELFWISE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHELFWISE_DB_USER"`
	LegacyPassword string `envconfig:"SHELFWISE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHELFWISE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHELFWISE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHELFWISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHELFWISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHELFWISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHELFWISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHELFWISE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHELFWISE_REDIS_ADDR"`
	Password     string        `envconfig:"SHELFWISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHELFWISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHELFWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHELFWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHELFWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHELFWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHELFWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHELFWISE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHELFWISE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHELFWISE_JWT_EXPIRATION_MINUTES" default:"120"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHELFWISE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHELFWISE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHELFWISE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHELFWISE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHELFWISE_ARGON_KEY_LEN" default:"32"`
}

// GatewayConfig describes the external redirect payment gateway. SaltKey and
// SaltIndex feed the X-VERIFY signature; the gateway contract fixes the
// algorithm, not us.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"SHELFWISE_GATEWAY_BASE_URL" required:"true"`
	MerchantID  string        `envconfig:"SHELFWISE_GATEWAY_MERCHANT_ID" required:"true"`
	SaltKey     string        `envconfig:"SHELFWISE_GATEWAY_SALT_KEY" required:"true"`
	SaltIndex   string        `envconfig:"SHELFWISE_GATEWAY_SALT_INDEX" default:"1"`
	RedirectURL string        `envconfig:"SHELFWISE_GATEWAY_REDIRECT_URL" required:"true"`
	CallbackURL string        `envconfig:"SHELFWISE_GATEWAY_CALLBACK_URL" required:"true"`
	Timeout     time.Duration `envconfig:"SHELFWISE_GATEWAY_TIMEOUT" default:"15s"`
}

type OTPConfig struct {
	CodeLength  int           `envconfig:"SHELFWISE_OTP_CODE_LENGTH" default:"6"`
	TTL         time.Duration `envconfig:"SHELFWISE_OTP_TTL" default:"5m"`
	MaxAttempts int           `envconfig:"SHELFWISE_OTP_MAX_ATTEMPTS" default:"3"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `envconfig:"SHELFWISE_CHECKOUT_SESSION_TTL" default:"2h"`
}

// RateLimitConfig throttles the authentication surfaces. A zero window
// disables the corresponding policy.
type RateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SHELFWISE_RL_LOGIN_WINDOW" default:"15m"`
	LoginIPLimit    int           `envconfig:"SHELFWISE_RL_LOGIN_IP_LIMIT" default:"30"`
	LoginPhoneLimit int           `envconfig:"SHELFWISE_RL_LOGIN_PHONE_LIMIT" default:"10"`
	OTPWindow       time.Duration `envconfig:"SHELFWISE_RL_OTP_WINDOW" default:"15m"`
	OTPIPLimit      int           `envconfig:"SHELFWISE_RL_OTP_IP_LIMIT" default:"20"`
	OTPPhoneLimit   int           `envconfig:"SHELFWISE_RL_OTP_PHONE_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHELFWISE_AUTO_MIGRATE" default:"false"`
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
