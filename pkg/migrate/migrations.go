package migrate

// Migration is one append-only, forward-only schema change. Migrations are
// identified by Version and applied in ascending order; once a Version
// ships it is never edited, only superseded by a later one.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// Migrations lists every schema change after the base schema, in order.
// A fresh database runs the base schema then all of these in sequence; an
// existing database runs only the ones past its recorded version.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "add extracted_data column to meetings",
		Statements: []string{
			`ALTER TABLE meetings ADD COLUMN extracted_data JSONB`,
		},
	},
	{
		Version:     2,
		Description: "add result and error columns to jobs",
		Statements: []string{
			`ALTER TABLE jobs ADD COLUMN result JSONB`,
			`ALTER TABLE jobs ADD COLUMN error TEXT`,
		},
	},
}
