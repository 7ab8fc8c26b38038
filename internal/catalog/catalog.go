// Package catalog maps logical entity names to physical PostgreSQL table
// names, applying an optional schema qualifier and table-name prefix. A
// single database can host several isolated storage instances as long as
// each uses its own (schema, prefix) pair.
package catalog

import (
	"fmt"

	"github.com/corefirst/authstore/internal/storageerr"
)

// Catalog resolves physical table names. The zero value maps every logical
// name to itself.
type Catalog struct {
	schema string
	prefix string
}

// New constructs a Catalog. Both schema and prefix may be empty; non-empty
// values must be plain SQL identifiers (letters, digits, underscore, not
// starting with a digit) since they are interpolated into query text.
func New(schema, prefix string) (Catalog, error) {
	if schema != "" && !validIdentifier(schema) {
		return Catalog{}, fmt.Errorf("%w: schema name %q", storageerr.ErrInvalidArgument, schema)
	}
	if prefix != "" && !validIdentifier(prefix+"x") {
		return Catalog{}, fmt.Errorf("%w: table prefix %q", storageerr.ErrInvalidArgument, prefix)
	}
	return Catalog{schema: schema, prefix: prefix}, nil
}

// Table returns the physical name for a logical table.
func (c Catalog) Table(logical string) string {
	name := c.prefix + logical
	if c.schema == "" {
		return name
	}
	return c.schema + "." + name
}

// Schema returns the configured schema qualifier, empty when none.
func (c Catalog) Schema() string {
	return c.schema
}

// Prefixed applies only the table-name prefix. Index names take this form:
// they cannot carry a schema qualifier and inherit their table's schema.
func (c Catalog) Prefixed(name string) string {
	return c.prefix + name
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
