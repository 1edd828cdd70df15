package env

import (
	"errors"
	"fmt"
	"os"

	"github.com/OmGuptaIND/clipcam/config"
	"github.com/spf13/viper"
)

const EnvPrefix = "CLIPCAM"

// Load reads the config file at path, if it exists, and applies CLIPCAM_*
// environment overrides on top of config.Defaults.
func Load(path string) (*config.Config, error) {
	v := viper.New()

	for key, value := range config.Defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("environment can't be loaded: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
