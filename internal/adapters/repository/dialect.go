package repository

import (
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect isolates what differs between the supported drivers. Queries are
// written with ? placeholders and rebound per driver.
type dialect interface {
	driverName() string
	rebind(query string) string
	// lockClause is appended to reads of rows about to be updated.
	lockClause() string
	isUniqueViolation(err error) bool
	// bootstrap runs once per connection pool before the schema.
	bootstrap() []string
	// maxOpenConns limits the pool. Zero leaves the driver default.
	maxOpenConns() int
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownDriver, "driver %q", driver)
}

type sqliteDialect struct{}

func (sqliteDialect) driverName() string         { return "sqlite" }
func (sqliteDialect) rebind(query string) string { return query }

// SQLite locks the whole database for a write transaction.
func (sqliteDialect) lockClause() string { return "" }

// One connection: writes are serialized by SQLite anyway, and an in-memory
// database lives only as long as its connection.
func (sqliteDialect) maxOpenConns() int { return 1 }

func (sqliteDialect) bootstrap() []string {
	return []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
}

func (sqliteDialect) isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// Without extended result codes only the primary code is set.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "postgres" }
func (postgresDialect) lockClause() string { return " FOR UPDATE" }

func (postgresDialect) maxOpenConns() int   { return 0 }
func (postgresDialect) bootstrap() []string { return nil }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}
