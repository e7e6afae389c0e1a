package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_BASE_URL points at a running server; the suite is skipped without it
	BaseURL string `envconfig:"E2E_BASE_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_SHOW_RENDERING logs the terminal output of every fetched message
	ShowRendering bool `envconfig:"E2E_SHOW_RENDERING" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
