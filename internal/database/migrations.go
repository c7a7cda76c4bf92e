package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createComplaintsTable,
		createComplaintsEventIndex,
		createComplaintsStatusIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// Event, author and executor ids reference MongoDB documents by hex id
const createComplaintsTable = `
CREATE TABLE IF NOT EXISTS complaints (
    id BIGSERIAL PRIMARY KEY,
    event_id CHAR(24) NOT NULL,
    author_id CHAR(24) NOT NULL,
    text TEXT NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
    answer TEXT,
    executor_id CHAR(24),
    date_answered TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('OPEN', 'CLOSED')),
    CHECK (status = 'OPEN' OR (answer IS NOT NULL AND executor_id IS NOT NULL AND date_answered IS NOT NULL))
);`

const createComplaintsEventIndex = `
CREATE INDEX IF NOT EXISTS complaints_event_id_idx ON complaints (event_id);`

const createComplaintsStatusIndex = `
CREATE INDEX IF NOT EXISTS complaints_status_created_idx ON complaints (status, created_at);`
