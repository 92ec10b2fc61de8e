package cli

import (
	"fmt"
	"os"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/config"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
)

// loadConfig reads the environment and installs the configured logger.
// Logs go to stderr so command output stays machine readable.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return cfg, nil
}
