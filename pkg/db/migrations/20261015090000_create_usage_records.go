package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/db"
)

// Migration20261015090000CreateUsageRecords creates the usage ledger.
func Migration20261015090000CreateUsageRecords() db.Migration {
	return db.Migration{
		Version:     20261015090000,
		Description: "Create usage_records table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS usage_records (
					id TEXT PRIMARY KEY,
					session_id TEXT NOT NULL,
					model TEXT NOT NULL,
					priced_as TEXT NOT NULL,
					prompt_tokens INTEGER NOT NULL,
					completion_tokens INTEGER NOT NULL,
					total_tokens INTEGER NOT NULL,
					input_cost REAL NOT NULL,
					output_cost REAL NOT NULL,
					total_cost REAL NOT NULL,
					created_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create usage_records table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS usage_records")
			return errors.Wrap(err, "failed to drop usage_records table")
		},
	}
}
