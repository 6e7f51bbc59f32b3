package db

import (
	"github.com/persistorai/trail/internal/db/migrations"
)

// SchemaVersion returns the number of SQL migration files, which equals the
// schema version this binary expects. It is reported by the health endpoint.
func SchemaVersion() int {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}
