package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/db"
)

// Migration20261015090100AddUsageIndexes indexes the ledger by time and session.
func Migration20261015090100AddUsageIndexes() db.Migration {
	return db.Migration{
		Version:     20261015090100,
		Description: "Add usage_records indexes",
		Up: func(tx *sql.Tx) error {
			for _, stmt := range []string{
				"CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at)",
				"CREATE INDEX IF NOT EXISTS idx_usage_records_session_id ON usage_records(session_id)",
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to execute %s", stmt)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			for _, stmt := range []string{
				"DROP INDEX IF EXISTS idx_usage_records_session_id",
				"DROP INDEX IF EXISTS idx_usage_records_created_at",
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to execute %s", stmt)
				}
			}
			return nil
		},
	}
}
