// Package migrations lists the schema changes of the local store.
package migrations

import (
	"github.com/jingkaihe/mcplab/pkg/db"
)

// All returns every migration. Append new ones at the end.
func All() []db.Migration {
	return []db.Migration{
		Migration20261015090000CreateUsageRecords(),
		Migration20261015090100AddUsageIndexes(),
	}
}
