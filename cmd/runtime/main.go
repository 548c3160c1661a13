package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/config"
	"github.com/hxuan190/balancer-sor/internal/http"
	"github.com/hxuan190/balancer-sor/internal/services/sor"
)

func main() {
	// load env; a missing .env falls back to the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load general config")
		return
	}
	common.SetupLogger(general.LogLevel, general.Env)
	common.InitRuntime()

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.SORConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&sor.SmartOrderRouter{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
