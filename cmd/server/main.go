package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joeshaw/envdecode"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/accounts/storefake"
	"github.com/stonevalleypartners/auth-library/server"
	"github.com/stonevalleypartners/auth-library/token"
)

type envConfig struct {
	// Addr is the listen address. ENV: AUTH_ADDR
	Addr string `env:"AUTH_ADDR,default=:8080"`
	// Secret keys HS256 signing and refresh-token encryption. ENV: AUTH_SECRET
	Secret string `env:"AUTH_SECRET,default=dev-only-secret"`
	// TokenDuration is the access-token lifetime. ENV: AUTH_TOKEN_DURATION
	TokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=1h"`
	// DemoEmail/DemoPassword seed one local account for trying the endpoints.
	DemoEmail    string `env:"AUTH_DEMO_EMAIL,default=demo@example.com"`
	DemoPassword string `env:"AUTH_DEMO_PASSWORD,default=password"`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	var cfg envConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("envdecode.Decode: %w", err)
	}
	displayAppname("auth library")

	auth, err := buildAuthServer(cfg)
	if err != nil {
		return fmt.Errorf("buildAuthServer: %w", err)
	}
	for _, route := range auth.Routes() {
		log.Info().Str("route", route).Msg("registered")
	}

	httpServer := &http.Server{Addr: cfg.Addr, Handler: auth}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildAuthServer(cfg envConfig) (*server.Server, error) {
	store := storefake.New()
	hash, err := accounts.HashPassword(cfg.DemoPassword)
	if err != nil {
		return nil, err
	}
	store.Add(&accounts.Account{Email: cfg.DemoEmail, PasswordHash: hash})

	auth, err := server.New(server.Config{
		Store:         store,
		Signing:       token.SymmetricConfig{Secret: cfg.Secret},
		TokenDuration: cfg.TokenDuration,
	})
	if err != nil {
		return nil, err
	}
	if err := auth.RegisterStrategy("local", server.NewLocalStrategy(store)); err != nil {
		return nil, err
	}
	return auth, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
