package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/corefirst/authstore/internal/flagx"
)

// jsonConfig is the DTO for the optional JSON configuration file. Durations
// are given in milliseconds, matching the epoch-millisecond convention used
// throughout the stored data.
type jsonConfig struct {
	DatabaseDSN   *string `json:"database_dsn"`
	MaxOpenConns  *int    `json:"max_open_conns"`
	MaxIdleConns  *int    `json:"max_idle_conns"`
	SchemaName    *string `json:"schema_name"`
	TablePrefix   *string `json:"table_prefix"`
	LockTimeoutMS *int64  `json:"lock_timeout_ms"`
}

// parseJSON overlays values from the JSON file named by the -c/-config flag,
// if any. Absent fields keep their current values. Unreadable or invalid
// files panic: a config file that was explicitly pointed at must load.
func parseJSON(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.MaxOpenConns != nil {
		config.MaxOpenConns = *c.MaxOpenConns
	}
	if c.MaxIdleConns != nil {
		config.MaxIdleConns = *c.MaxIdleConns
	}
	if c.SchemaName != nil {
		config.SchemaName = *c.SchemaName
	}
	if c.TablePrefix != nil {
		config.TablePrefix = *c.TablePrefix
	}
	if c.LockTimeoutMS != nil {
		config.LockTimeout = time.Duration(*c.LockTimeoutMS) * time.Millisecond
	}
}
