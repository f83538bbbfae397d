package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo/internal/config"
	"github.com/adanyl0v/go-todo/internal/delivery/http/v1"
	"github.com/adanyl0v/go-todo/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	// Hijacked websocket connections are not tracked by Shutdown,
	// closing the hub ends their handlers.
	StopRealtime()
	StopSessionCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()
	jwtCfg := cfg.JWT

	authService := services.NewAuthService(
		globalLogger.With().Str("service", "auth").Logger(),
		globalPostgresPool,
		jwtCfg.Issuer,
		[]byte(jwtCfg.SigningKey),
		jwtCfg.AccessTokenTTL,
		jwtCfg.RefreshTokenTTL,
	)
	sessionService := services.NewSessionService(
		globalLogger.With().Str("service", "sessions").Logger(),
		globalPostgresPool,
	)
	userService := services.NewUserService(
		globalLogger.With().Str("service", "users").Logger(),
		globalPostgresPool,
	)
	todoService := services.NewTodoService(
		globalLogger.With().Str("service", "todos").Logger(),
		globalPostgresPool,
	)

	v1Handler := v1.New(
		globalLogger.With().Str("api", "v1").Logger(),
		authService,
		sessionService,
		userService,
		todoService,
		globalRealtimeHub,
		v1.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			WriteTimeout:   cfg.Realtime.WriteTimeout,
			Ping:           pingPostgres,
		},
	)
	v1.RegisterRoutes(router, v1Handler)
}
