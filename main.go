package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

func run(ctx context.Context, config Config, log zerolog.Logger) error {
	router := NewRouter()
	if config.RoutesFile != "" {
		var err error
		if router, err = LoadRoutes(config.RoutesFile); err != nil {
			return err
		}
		log.Info().Str("file", config.RoutesFile).Msg("routes loaded")
	}

	var static *StaticResolver
	if config.StaticRoot != "" {
		var err error
		if static, err = NewStaticResolver(config.StaticRoot, log); err != nil {
			return err
		}
		log.Info().Str("root", static.Root()).Msg("serving static files")
	}

	srv := NewServer(ServerOptions{
		Addr:        config.Addr(),
		IdleTimeout: config.IdleTimeout,
		Settings:    ReaderSettings{MaxBodyLength: config.MaxBodyLength},
	}, router, static, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	config, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := newLogger(os.Stderr, config.Debug, config.LogJSON)
	log.Info().Int("port", config.Port).Bool("debug", config.Debug).Msg("starting http4j")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, log); err != nil {
		log.Error().Err(err).Msg("http4j failed")
		stop()
		os.Exit(1)
	}
}
