// Package sorting translates caller-supplied sort keys into SQL ORDER BY
// clauses against a per-listing whitelist of sortable columns.
package sorting

import (
	"fmt"
	"strings"
)

// Clause is a validated ORDER BY fragment.
type Clause struct {
	Column    string
	Direction string // "ASC" or "DESC"
}

const abuseIDColumn = `"videoAbuse"."id"`

// Sortable columns for the abuse listing. Keys are the caller-facing names;
// a leading '-' on the key requests descending order.
var abuseSortColumns = map[string]string{
	"id":        abuseIDColumn,
	"createdAt": `"videoAbuse"."created_at"`,
	"state":     `"videoAbuse"."state"`,
}

// ParseAbuseSort validates a caller sort key ("createdAt", "-state", ...)
// against the abuse listing whitelist. An empty key defaults to newest first.
func ParseAbuseSort(key string) (Clause, error) {
	if key == "" {
		key = "-createdAt"
	}
	direction := "ASC"
	if strings.HasPrefix(key, "-") {
		direction = "DESC"
		key = key[1:]
	}
	column, ok := abuseSortColumns[key]
	if !ok {
		return Clause{}, fmt.Errorf("unknown sort key %q", key)
	}
	return Clause{Column: column, Direction: direction}, nil
}

// SQL renders the ORDER BY fragment. The report id is appended ascending as a
// stable tiebreaker so equal sort values keep a deterministic order.
func (c Clause) SQL() string {
	if c.Column == abuseIDColumn {
		return fmt.Sprintf("%s %s", c.Column, c.Direction)
	}
	return fmt.Sprintf("%s %s, %s ASC", c.Column, c.Direction, abuseIDColumn)
}
