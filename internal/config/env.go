package config

import (
	"github.com/caarlos0/env/v11"
)

// parseEnv overlays values from AUTHSTORE_* environment variables. Unset
// variables keep their current values; malformed ones panic, matching the
// JSON loader's behavior.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
