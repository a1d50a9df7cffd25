package main

import (
	"github.com/docc-lab/pythia/internal/config"
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/searchspace"
)

// configPath is bound to the --config persistent flag every subcommand
// reads its configuration from.
var configPath string

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newController(cfg *config.Config) *controller.Controller {
	return controller.New(cfg.PythiaClients)
}

func loadManifestFromConfig(cfg *config.Config) (*searchspace.Manifest, error) {
	return searchspace.LoadManifest(cfg.ManifestFile)
}
