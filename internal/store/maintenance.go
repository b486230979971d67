package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MaintenanceStore performs cross-table text maintenance.
type MaintenanceStore struct {
	db *pgxpool.Pool
}

func NewMaintenanceStore(db *pgxpool.Pool) *MaintenanceStore {
	return &MaintenanceStore{db: db}
}

// replaceTargets lists every text-bearing column touched by search-and-replace.
// Raw conversation text is deliberately excluded: raw_text is immutable.
var replaceTargets = []struct {
	table   string
	columns []string
}{
	{"conversation_units", []string{"sanitized_text"}},
	{"propositions", []string{"content", "subject"}},
	{"entity_mentions", []string{"text"}},
	{"entities", []string{"canonical_name"}},
	{"claims", []string{"statement", "subject"}},
	{"thought_chains", []string{"topic"}},
	{"goals", []string{"statement"}},
}

// ReplaceAll rewrites oldText to newText across all text-bearing columns and
// returns the number of rows changed per table.
func (s *MaintenanceStore) ReplaceAll(ctx context.Context, oldText, newText string) (map[string]int64, error) {
	counts := make(map[string]int64, len(replaceTargets))
	for _, target := range replaceTargets {
		var total int64
		for _, col := range target.columns {
			query := fmt.Sprintf(
				`UPDATE %s SET %s = REPLACE(%s, $1, $2) WHERE %s LIKE '%%' || $1 || '%%'`,
				target.table, col, col, col,
			)
			tag, err := s.db.Exec(ctx, query, oldText, newText)
			if err != nil {
				return counts, fmt.Errorf("replace in %s.%s: %w", target.table, col, err)
			}
			total += tag.RowsAffected()
		}
		counts[target.table] = total
	}
	return counts, nil
}
