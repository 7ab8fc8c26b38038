// Package pagination builds keyset-paginated listing queries: a sort
// direction on a primary ordering column, a tie-break column for a total
// order, and an optional boundary marking where the previous page ended.
// Offset pagination is deliberately absent; keysets stay stable under
// concurrent writes.
package pagination

import (
	"fmt"
	"strings"

	"github.com/corefirst/authstore/internal/storageerr"
)

// Order is a validated sort direction. The zero value is not valid; obtain
// one from ParseOrder or the exported constants.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// ParseOrder validates a direction token against the closed set
// {"ASC","DESC"} (case-insensitive). Anything else fails with
// InvalidArgument before any query is built.
func ParseOrder(token string) (Order, error) {
	switch strings.ToUpper(token) {
	case "ASC":
		return OrderAsc, nil
	case "DESC":
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("%w: sort order %q", storageerr.ErrInvalidArgument, token)
	}
}

// Boundary is the (orderValue, tieBreakValue) pair of the last row of the
// previous page. The next page starts strictly after it.
type Boundary struct {
	OrderValue int64
	TieBreak   string
}

// Keyset describes one listing's ordering: an int64 primary order column
// (e.g. time_joined) and a string tie-break column (typically the primary
// key), always applied as a secondary sort key.
type Keyset struct {
	OrderColumn    string
	TieBreakColumn string
	Order          Order
}

// cmp is the row-wise comparison operator for "strictly after the boundary".
func (k Keyset) cmp() string {
	if k.Order == OrderAsc {
		return ">"
	}
	return "<"
}

// BoundaryPredicate returns an SQL predicate selecting rows strictly after b
// in sort order, with placeholders numbered from argOffset, plus the
// matching args. Rows equal on the order column are discriminated by the
// tie-break column.
func (k Keyset) BoundaryPredicate(b Boundary, argOffset int) (string, []any) {
	op := k.cmp()
	pred := fmt.Sprintf("(%s %s $%d OR (%s = $%d AND %s %s $%d))",
		k.OrderColumn, op, argOffset,
		k.OrderColumn, argOffset,
		k.TieBreakColumn, op, argOffset+1)
	return pred, []any{b.OrderValue, b.TieBreak}
}

// OrderBy returns the ORDER BY clause with the tie-break applied as a
// secondary key, so rows with identical order values have a total,
// reproducible order.
func (k Keyset) OrderBy() string {
	return fmt.Sprintf("ORDER BY %s %s, %s %s", k.OrderColumn, k.Order, k.TieBreakColumn, k.Order)
}
