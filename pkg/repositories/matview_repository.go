package repositories

import (
	"context"
	"fmt"

	"github.com/iduprojects/insert-services/pkg/database"
)

// MatviewRepository lists and refreshes materialized views. The catalog is
// read dynamically so views added by later migrations are picked up
// without code changes.
type MatviewRepository interface {
	List(ctx context.Context, schema string) ([]string, error)
	Refresh(ctx context.Context, schema, name string) error
}

type matviewRepository struct {
	db database.Querier
}

// NewMatviewRepository creates a new MatviewRepository.
func NewMatviewRepository(db database.Querier) MatviewRepository {
	return &matviewRepository{db: db}
}

var _ MatviewRepository = (*matviewRepository)(nil)

func (r *matviewRepository) List(ctx context.Context, schema string) ([]string, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT matviewname
		FROM pg_matviews
		WHERE schemaname = $1
		ORDER BY matviewname`

	rows, err := q.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list materialized views: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan materialized view name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating materialized views: %w", err)
	}

	return names, nil
}

func (r *matviewRepository) Refresh(ctx context.Context, schema, name string) error {
	q := database.QuerierFrom(ctx, r.db)

	// Names come from pg_matviews, quoting guards against exotic view names.
	stmt := fmt.Sprintf("REFRESH MATERIALIZED VIEW %s.%s", quoteIdent(schema), quoteIdent(name))
	if _, err := q.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to refresh materialized view %s: %w", name, err)
	}

	return nil
}

func quoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
