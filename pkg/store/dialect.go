package store

import (
	"strconv"
	"strings"
)

// Dialect smooths over the differences between the two supported databases.
// Queries are written with ? placeholders and SQLite column types
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a Dialect
func ParseDialect(driver string) (Dialect, bool) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pq":
		return Postgres, true
	}
	return "", false
}

// Rebind rewrites ? placeholders as $1, $2... for postgres. Question marks
// inside single-quoted literals are left alone
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			sb.WriteRune(r)
		case r == '?' && !quoted:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ColumnType translates a SQLite column declaration for the dialect
func (d Dialect) ColumnType(dbType string) string {
	if d != Postgres {
		return dbType
	}
	upper := strings.ToUpper(dbType)
	switch {
	case strings.HasPrefix(upper, "DATETIME"):
		return "TIMESTAMPTZ" + dbType[len("DATETIME"):]
	case strings.HasPrefix(upper, "REAL"):
		return "DOUBLE PRECISION" + dbType[len("REAL"):]
	}
	return dbType
}

// ForUpdate is appended to reads inside a read-modify-write transaction
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}
