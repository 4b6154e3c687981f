package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fazecat/gapscreener/Internal/datafeed"
	"github.com/fazecat/gapscreener/Internal/handlers"
	"github.com/fazecat/gapscreener/Internal/scanners"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	_ = godotenv.Load()
	_ = godotenv.Load("../../.env")

	configPath := os.Getenv("SCREENER_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	factory, err := datafeed.ResolveFactory(cfg.Data.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving provider")
	}
	provider, err := factory(cfg.Data)
	if err != nil {
		log.Fatal().Err(err).Msg("building provider")
	}

	catalog := scanners.BuildScannerDefinitions()
	if err := scanners.ValidateScanners(catalog, scanners.BaselineRegistry()); err != nil {
		log.Fatal().Err(err).Msg("scanner catalog is invalid")
	}

	api := handlers.NewAPI(cfg, provider, catalog)

	addr := os.Getenv("SCREENER_API_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	log.Info().Str("addr", addr).Msg("screener api listening")
	if err := http.ListenAndServe(addr, api.Router()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
