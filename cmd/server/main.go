package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arhyth/banklink"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	envfp := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envfp); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Fatal().Err(err).Msg("error loading dotenv file")
	}
	cfg, err := banklink.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading configuration")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("error parsing log level")
	}
	zerolog.SetGlobalLevel(lvl)
	logger = logger.With().Str("bank", cfg.Bank.ID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo banklink.Repository
	switch cfg.Database.Driver {
	case banklink.DriverMemory:
		store := banklink.NewMemoryStore()
		if err = banklink.SeedMemory(store, cfg.Database.Seed); err != nil {
			logger.Fatal().Err(err).Msg("error seeding memory store")
		}
		repo = store
	default:
		pgendpt, err := banklink.NewPostgresEndpoint(ctx, cfg.Database.ConnectionString, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("error starting database")
		}
		defer pgendpt.Close()
		repo = pgendpt
	}

	node, err := snowflake.NewNode(cfg.Bank.NodeID)
	if err != nil {
		logger.Fatal().Err(err).Int64("node_id", cfg.Bank.NodeID).Msg("error creating snowflake node")
	}
	client := banklink.NewHTTPCreditClient(
		cfg.Destination.BaseURL,
		cfg.Destination.Timeout,
		cfg.Destination.Breaker,
		&logger,
	)
	coord := banklink.NewCoordinator(repo, client, cfg.Bank.ID, node, &logger)
	svc := banklink.Wrap(
		banklink.NewService(repo, coord, banklink.ServiceOpts{
			BankID:        cfg.Bank.ID,
			AutoProvision: cfg.Bank.AutoProvision,
		}, &logger),
		banklink.NewLoggingMiddleware(&logger),
		banklink.NewLimitMiddleware(banklink.NewServiceLimits(cfg.Limits)),
	)
	hndlr := banklink.NewHTTPHandler(svc, &logger)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Bank.Port),
		Handler:           hndlr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str("destination", cfg.Destination.BaseURL).
			Bool("auto_provision", cfg.Bank.AutoProvision).
			Msg("ledger service listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// in-flight transfers get the destination timeout plus slack to reach
		// an end state
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Destination.Timeout+5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err = g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
