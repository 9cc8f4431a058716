package repository

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3",
		d.rebind("SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?"))
	assert.Equal(t, "SELECT 1", d.rebind("SELECT 1"))
	assert.Equal(t, " FOR UPDATE", d.lockClause())
}

func TestSQLiteDialect(t *testing.T) {
	d := sqliteDialect{}
	q := "SELECT a FROM t WHERE x = ?"
	assert.Equal(t, q, d.rebind(q))
	assert.Empty(t, d.lockClause())
	assert.Equal(t, 1, d.maxOpenConns())
}

func TestPostgresUniqueViolation(t *testing.T) {
	d := postgresDialect{}
	wrapped := errors.Wrap(&pq.Error{Code: "23505"}, "insert")
	assert.True(t, d.isUniqueViolation(wrapped))
	assert.False(t, d.isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, d.isUniqueViolation(errors.New("plain")))
}

func TestDialectFor(t *testing.T) {
	_, err := dialectFor("sqlite")
	assert.NoError(t, err)
	_, err = dialectFor("postgres")
	assert.NoError(t, err)
	_, err = dialectFor("mysql")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
