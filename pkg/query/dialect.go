package query

import "fmt"

// Dialect captures the syntax differences between supported SQL engines.
type Dialect struct {
	// Name identifies the engine ("postgres", "sqlite").
	Name string
	// Schema is the default schema tables are qualified with.
	Schema string
	// Like is the case-insensitive pattern match operator.
	Like        string
	placeholder string
}

var (
	// Postgres numbers parameters as $1, $2, ...
	Postgres = Dialect{Name: "postgres", Schema: "public", Like: "ILIKE", placeholder: "$%d"}
	// SQLite numbers parameters as ?1, ?2, ... and relies on LIKE being
	// case-insensitive for ASCII.
	SQLite = Dialect{Name: "sqlite", Schema: "main", Like: "LIKE", placeholder: "?%d"}
)

// Placeholder returns the n-th (1-based) parameter reference.
func (d Dialect) Placeholder(n int) string {
	if d.placeholder == "" {
		return Postgres.Placeholder(n)
	}
	return fmt.Sprintf(d.placeholder, n)
}

// DialectFor returns the dialect for a driver name, defaulting to Postgres.
func DialectFor(driver string) Dialect {
	if driver == SQLite.Name {
		return SQLite
	}
	return Postgres
}
