package segmentation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ignite/audience-sizer/internal/warehouse"
)

// QueryBuilder builds count queries from filter sets for one dialect.
// Identifiers are quoted by the dialect; values only ever travel as args.
type QueryBuilder struct {
	dialect    warehouse.Dialect
	args       []interface{}
	argCounter int
}

// NewQueryBuilder creates a new QueryBuilder
func NewQueryBuilder(d warehouse.Dialect) *QueryBuilder {
	return &QueryBuilder{
		dialect:    d,
		args:       make([]interface{}, 0),
		argCounter: 1,
	}
}

// nextArg returns the next argument placeholder
func (qb *QueryBuilder) nextArg(value interface{}) string {
	qb.args = append(qb.args, value)
	placeholder := qb.dialect.Placeholder(qb.argCounter)
	qb.argCounter++
	return placeholder
}

// BuildCountQuery builds SELECT COUNT(*) over schema.table with one clause
// per filter, in filter order. No filters means no WHERE.
func (qb *QueryBuilder) BuildCountQuery(schema, table string, filters FilterSet) (CompiledQuery, error) {
	// Reset state
	qb.args = make([]interface{}, 0)
	qb.argCounter = 1

	if err := CheckRanges(filters); err != nil {
		return CompiledQuery{}, err
	}

	if err := warehouse.ValidateIdentifier(table); err != nil {
		return CompiledQuery{}, &ValidationError{Column: table, Reason: ReasonInvalidTable}
	}
	from, err := warehouse.QualifiedName(qb.dialect, schema, table)
	if err != nil {
		return CompiledQuery{}, err
	}

	whereConditions := make([]string, 0, filters.Len())
	for _, f := range filters.entries {
		cond, err := qb.buildCondition(f)
		if err != nil {
			return CompiledQuery{}, err
		}
		whereConditions = append(whereConditions, cond)
	}

	query := "SELECT COUNT(*) FROM " + from
	if len(whereConditions) > 0 {
		query += " WHERE " + strings.Join(whereConditions, " AND ")
	}

	return CompiledQuery{SQL: query, Args: qb.args}, nil
}

func (qb *QueryBuilder) buildCondition(f Filter) (string, error) {
	if err := warehouse.ValidateIdentifier(f.Column); err != nil {
		return "", &ValidationError{Column: f.Column, Reason: ReasonUnknownColumn}
	}
	col := qb.dialect.QuoteIdentifier(f.Column)

	switch f.Value.Kind() {
	case KindRange:
		low, high := f.Value.Bounds()
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, qb.nextArg(low), qb.nextArg(high)), nil
	case KindScalar:
		return fmt.Sprintf("%s = %s", col, qb.nextArg(f.Value.Value())), nil
	default:
		return "", invalidValue(f.Column)
	}
}

// Compile is a one-shot BuildCountQuery.
func Compile(d warehouse.Dialect, schema, table string, filters FilterSet) (CompiledQuery, error) {
	return NewQueryBuilder(d).BuildCountQuery(schema, table, filters)
}

// HashQuery generates a deterministic hash of a compiled query for log correlation
func HashQuery(q CompiledQuery) string {
	data := struct {
		SQL  string        `json:"sql"`
		Args []interface{} `json:"args"`
	}{
		SQL:  q.SQL,
		Args: q.Args,
	}

	jsonBytes, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:8])
}
