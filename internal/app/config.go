package app

import (
	"errors"

	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/go-todo/internal/config"
)

// MustReadEnv reads the server config, with .env files loaded on import.
func MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		msg := "failed to read env"
		if errors.Is(err, config.ErrInvalidConfig) {
			msg = "invalid env"
		}
		globalLogger.Error().
			Err(err).
			Msg(msg)
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTP.Port).
		Strs("allowed_origins", cfg.HTTP.AllowedOrigins).
		Str("realtime_channel", cfg.Realtime.Channel).
		Dur("access_token_ttl", cfg.JWT.AccessTokenTTL).
		Msg("read env")

	config.SetGlobal(cfg)
}
