package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-sizer/internal/warehouse/warehousetest"
)

const pgCatalogQuery = "SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = $1 ORDER BY table_name, ordinal_position"

func TestFetch(t *testing.T) {
	opener, mock := warehousetest.NewMock(t, "postgres")

	mock.ExpectQuery(pgCatalogQuery).
		WithArgs("residents").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("resident_core", "pseudonymous_id", "character varying").
			AddRow("resident_core", "age", "integer").
			AddRow("resident_core", "kids_flag", "boolean"))

	cols, err := NewAccessor(opener).Fetch(context.Background(), "residents")
	require.NoError(t, err)

	assert.Equal(t, []ColumnDescriptor{
		{Table: "resident_core", Column: "pseudonymous_id", Type: "character varying"},
		{Table: "resident_core", Column: "age", Type: "integer"},
		{Table: "resident_core", Column: "kids_flag", Type: "boolean"},
	}, cols)
	assert.Equal(t, 1, opener.Opens)
	assert.Equal(t, 1, opener.Closes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_EmptySchema(t *testing.T) {
	opener, mock := warehousetest.NewMock(t, "postgres")

	mock.ExpectQuery(pgCatalogQuery).
		WithArgs("empty_schema").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}))

	cols, err := NewAccessor(opener).Fetch(context.Background(), "empty_schema")
	require.NoError(t, err)
	assert.NotNil(t, cols)
	assert.Empty(t, cols)
}

func TestFetch_ConnectFailure(t *testing.T) {
	opener, _ := warehousetest.NewMock(t, "postgres")
	opener.OpenErr = errors.New("connection refused")

	_, err := NewAccessor(opener).Fetch(context.Background(), "residents")

	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "residents", ce.Schema)
	assert.ErrorContains(t, err, "connection refused")
}

func TestFetch_QueryFailure(t *testing.T) {
	opener, mock := warehousetest.NewMock(t, "postgres")

	mock.ExpectQuery(pgCatalogQuery).
		WithArgs("residents").
		WillReturnError(errors.New("permission denied"))

	_, err := NewAccessor(opener).Fetch(context.Background(), "residents")

	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, opener.Closes)
}

func TestColumnsAndTables(t *testing.T) {
	cols := []ColumnDescriptor{
		{Table: "resident_core", Column: "age"},
		{Table: "resident_core", Column: "kids_flag"},
		{Table: "households", Column: "age"},
	}

	assert.Equal(t, map[string]struct{}{"age": {}, "kids_flag": {}}, Columns(cols))
	assert.Equal(t, map[string]struct{}{"resident_core": {}, "households": {}}, Tables(cols))
}
