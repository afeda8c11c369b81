package main

import (
	"context"
	"embed"
	"flag"
	"os"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/logger"
)

//go:embed static/* templates/*
var content embed.FS

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	boot := logger.New("info", true)
	config.SetLogger(logger.Component(boot, "config"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Logging.Level, cfg.Server.Dev)

	app, err := newApplication(context.Background(), cfg, log, content)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	defer app.close()

	if err := app.serve(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		app.close()
		os.Exit(1)
	}
}
