package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullDate converts a local date into a DATE parameter; the zero date is NULL.
func nullDate(d civil.Date) any {
	if !d.IsValid() {
		return nil
	}
	return d.In(time.UTC)
}

// dateFrom converts a scanned DATE column back into a local date.
func dateFrom(t sql.NullTime) civil.Date {
	if !t.Valid {
		return civil.Date{}
	}
	return civil.DateOf(t.Time)
}

// nullTime converts an instant into a TIMESTAMPTZ parameter; the zero time is NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// timeFrom converts a scanned TIMESTAMPTZ column into a UTC instant.
func timeFrom(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// nullUUID converts an optional reference into a UUID parameter; uuid.Nil is NULL.
func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// execVersioned runs an UPDATE guarded by "AND version = $n". When no row
// matched it distinguishes a missing row (notFound) from a stale version
// (store.ErrVersionConflict).
func execVersioned(
	ctx context.Context,
	db store.DBTX,
	table, keyColumn string,
	key uuid.UUID,
	notFound error,
	query string,
	args ...any,
) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	existsQuery := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", table, keyColumn)
	if err := db.QueryRowContext(ctx, existsQuery, key).Scan(&exists); err != nil {
		return MapError(err)
	}
	if exists {
		return fmt.Errorf("%w: %s %s", store.ErrVersionConflict, table, key)
	}
	return notFound
}
