package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// Config is the server configuration.
type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	HTTP     HTTPConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Realtime RealtimeConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	// Origins allowed to open the realtime websocket from a browser.
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-required:"true"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-required:"true"`
	Password       string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Database       string        `env:"POSTGRES_DATABASE" env-required:"true"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
	// The realtime listener holds one connection for its lifetime.
	MaxConns int32 `env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

type JWTConfig struct {
	Issuer                 string        `env:"JWT_ISSUER" env-default:"go-todo"`
	SigningKey             string        `env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL         time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL        time.Duration `env:"JWT_REFRESH_TOKEN_TTL" env-default:"720h"`
	SessionCleanupInterval time.Duration `env:"JWT_SESSION_CLEANUP_INTERVAL" env-default:"1h"`
}

type RealtimeConfig struct {
	Channel          string        `env:"REALTIME_CHANNEL" env-default:"todos_changes"`
	SubscriberBuffer int           `env:"REALTIME_SUBSCRIBER_BUFFER" env-default:"64"`
	ReconnectDelay   time.Duration `env:"REALTIME_RECONNECT_DELAY" env-default:"3s"`
	WriteTimeout     time.Duration `env:"REALTIME_WRITE_TIMEOUT" env-default:"5s"`
}

// ClientConfig is the configuration of the terminal client.
type ClientConfig struct {
	Env       string        `env:"ENV" env-default:"prod"`
	ServerURL string        `env:"TODO_SERVER_URL" env-default:"http://localhost:8080"`
	Email     string        `env:"TODO_EMAIL"`
	Password  string        `env:"TODO_PASSWORD"`
	Timeout   time.Duration `env:"TODO_REQUEST_TIMEOUT" env-default:"10s"`
	LogFile   string        `env:"TODO_LOG_FILE" env-default:"todo.log"`
}

var (
	ErrInvalidConfig = errors.New("invalid config")

	// Postgres channel names are identifiers and end up in a trigger
	// definition, where they cannot be bound as parameters.
	channelNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

// Validate checks what struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: unknown env %q", ErrInvalidConfig, c.Env)
	}
	if !channelNamePattern.MatchString(c.Realtime.Channel) {
		return fmt.Errorf("%w: bad realtime channel name %q", ErrInvalidConfig, c.Realtime.Channel)
	}
	if c.Realtime.SubscriberBuffer < 1 {
		return fmt.Errorf("%w: realtime subscriber buffer must be positive", ErrInvalidConfig)
	}
	if c.Postgres.MaxConns < 2 {
		return fmt.Errorf("%w: postgres max conns must be at least 2", ErrInvalidConfig)
	}
	if c.JWT.SessionCleanupInterval <= 0 {
		return fmt.Errorf("%w: session cleanup interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: bad server url %q", ErrInvalidConfig, c.ServerURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
