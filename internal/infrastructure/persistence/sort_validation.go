package persistence

import (
	"strings"
)

// sortSpec whitelists the columns a list query may be ordered by. Anything
// else, including injection attempts, falls back to the default column.
type sortSpec struct {
	columns       map[string]bool
	defaultColumn string
}

func newSortSpec(defaultColumn string, columns ...string) sortSpec {
	spec := sortSpec{columns: make(map[string]bool, len(columns)+4), defaultColumn: defaultColumn}
	for _, c := range append(columns, defaultColumn, "id", "created_at", "updated_at") {
		spec.columns[c] = true
	}
	return spec
}

// clause returns "<column> ASC|DESC". Direction defaults to DESC.
func (s sortSpec) clause(orderBy, orderDir string) string {
	column := s.defaultColumn
	if c := strings.TrimSpace(orderBy); s.columns[c] {
		column = c
	}
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		dir = "ASC"
	}
	return column + " " + dir
}

var (
	loadSort    = newSortSpec("created_at", "pickup_date", "budget", "weight_kg", "bid_count", "status")
	bidSort     = newSortSpec("submitted_at", "amount", "expires_at", "status")
	bookingSort = newSortSpec("assigned_at", "completed_at", "agreed_amount", "status")
)
