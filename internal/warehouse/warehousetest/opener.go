// Package warehousetest provides warehouse openers for tests.
package warehousetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-sizer/internal/warehouse"
)

// Opener hands out a shared *sql.DB. Close on the returned handle is
// counted but does not close the underlying DB, so one sqlmock can serve a
// whole request.
type Opener struct {
	DB      *sql.DB
	D       warehouse.Dialect
	OpenErr error
	Opens   int
	Closes  int
}

type handle struct {
	*sql.DB
	o *Opener
}

func (h handle) Close() error {
	h.o.Closes++
	return nil
}

// Open returns the shared DB or OpenErr.
func (o *Opener) Open(context.Context) (warehouse.DB, error) {
	o.Opens++
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return handle{DB: o.DB, o: o}, nil
}

// Dialect returns D.
func (o *Opener) Dialect() warehouse.Dialect { return o.D }

// NewMock returns an Opener backed by sqlmock using the given dialect.
// Queries are matched literally.
func NewMock(t *testing.T, driver string) (*Opener, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := warehouse.DialectFor(driver)
	require.NoError(t, err)

	return &Opener{DB: db, D: d}, mock
}
