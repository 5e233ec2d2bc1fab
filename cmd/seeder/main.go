package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

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
	if cfg.Database.Driver != banklink.DriverPostgres {
		logger.Fatal().Str("driver", cfg.Database.Driver).Msg("seeder only supports the postgres driver")
	}

	ctx := context.Background()
	lh, err := banklink.NewLocalHelper(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting local helper")
	}
	defer lh.Conn.Close(ctx)
	if _, err = lh.InitDB(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error initializing database")
	}
	if err = lh.SeedAccounts(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error seeding accounts")
	}
	logger.Info().Int("accounts", len(lh.Seed)).Msg("database ready")
}
