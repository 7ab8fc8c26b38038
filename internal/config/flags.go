package config

import (
	"flag"
	"os"
	"time"

	"github.com/corefirst/authstore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-o int      max open connections
//	-i int      max idle connections
//	-n string   schema name
//	-p string   table-name prefix
//	-l int      lock timeout, milliseconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-o", "-i", "-n", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxOpenConns, "o", config.MaxOpenConns, "max open connections")
	fs.IntVar(&config.MaxIdleConns, "i", config.MaxIdleConns, "max idle connections")
	fs.StringVar(&config.SchemaName, "n", config.SchemaName, "schema name")
	fs.StringVar(&config.TablePrefix, "p", config.TablePrefix, "table name prefix")

	lockTimeoutMS := fs.Int64("l", config.LockTimeout.Milliseconds(), "lock timeout (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LockTimeout = time.Duration(*lockTimeoutMS) * time.Millisecond
}
