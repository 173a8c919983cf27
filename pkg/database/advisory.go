package database

import (
	"context"
	"fmt"
)

// AcquireCityLock takes a transaction-scoped advisory lock keyed by the city
// id. Concurrent loads into the same city serialize on this lock while loads
// into different cities proceed in parallel. The lock is released
// automatically when the surrounding transaction commits or rolls back.
func AcquireCityLock(ctx context.Context, q Querier, cityID int64) error {
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", cityID); err != nil {
		return fmt.Errorf("failed to acquire advisory lock for city %d: %w", cityID, err)
	}
	return nil
}
