package segmentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ==========================================
// FILTER VALUES
// ==========================================

// ValueKind distinguishes the two shapes a filter value can take.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindRange
)

// FilterValue is either a scalar (string, number or bool) compared for
// equality, or a numeric [low, high] range matched inclusively.
// Numbers are int64 when integral and float64 otherwise.
type FilterValue struct {
	kind   ValueKind
	scalar interface{}
	low    interface{}
	high   interface{}
}

// Scalar returns an equality filter value.
func Scalar(v interface{}) FilterValue {
	return FilterValue{kind: KindScalar, scalar: v}
}

// Range returns an inclusive range filter value. Bounds must be int64 or float64.
func Range(low, high interface{}) FilterValue {
	return FilterValue{kind: KindRange, low: low, high: high}
}

// Kind reports whether v is a scalar or a range.
func (v FilterValue) Kind() ValueKind { return v.kind }

// IsRange is shorthand for Kind() == KindRange.
func (v FilterValue) IsRange() bool { return v.kind == KindRange }

// Value returns the scalar value. It is nil for ranges.
func (v FilterValue) Value() interface{} { return v.scalar }

// Bounds returns the range bounds. They are nil for scalars.
func (v FilterValue) Bounds() (low, high interface{}) { return v.low, v.high }

// MarshalJSON renders a scalar as itself and a range as [low, high].
func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.kind == KindRange {
		return json.Marshal([]interface{}{v.low, v.high})
	}
	return json.Marshal(v.scalar)
}

// parseFilterValue decodes one filter value. Anything other than a string,
// number, bool or two-number array is rejected.
func parseFilterValue(column string, raw json.RawMessage) (FilterValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return FilterValue{}, invalidValue(column)
	}

	switch x := v.(type) {
	case string, bool:
		return Scalar(x), nil
	case json.Number:
		n, err := numberValue(x)
		if err != nil {
			return FilterValue{}, invalidValue(column)
		}
		return Scalar(n), nil
	case []interface{}:
		if len(x) != 2 {
			return FilterValue{}, invalidValue(column)
		}
		lo, okLo := x[0].(json.Number)
		hi, okHi := x[1].(json.Number)
		if !okLo || !okHi {
			return FilterValue{}, invalidValue(column)
		}
		low, err := numberValue(lo)
		if err != nil {
			return FilterValue{}, invalidValue(column)
		}
		high, err := numberValue(hi)
		if err != nil {
			return FilterValue{}, invalidValue(column)
		}
		return Range(low, high), nil
	default:
		return FilterValue{}, invalidValue(column)
	}
}

// numberValue converts to int64 when the literal is integral, float64 otherwise.
func numberValue(n json.Number) (interface{}, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("number out of range: %s", n)
	}
	return f, nil
}

// compareNumbers returns -1, 0 or 1. Both arguments must be int64 or float64.
func compareNumbers(a, b interface{}) (int, bool) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		}
		return 0, true
	}

	af, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ==========================================
// FILTER SETS
// ==========================================

// Filter is one column → value entry.
type Filter struct {
	Column string
	Value  FilterValue
}

// FilterSet is an ordered column → value mapping. Order is the order entries
// were added (or appeared in JSON) and drives clause and parameter order.
type FilterSet struct {
	entries []Filter
}

// NewFilterSet builds a set from entries, rejecting duplicate columns.
func NewFilterSet(entries ...Filter) (FilterSet, error) {
	var fs FilterSet
	for _, e := range entries {
		if err := fs.Add(e.Column, e.Value); err != nil {
			return FilterSet{}, err
		}
	}
	return fs, nil
}

// Add appends an entry. Columns must be unique.
func (fs *FilterSet) Add(column string, v FilterValue) error {
	for _, e := range fs.entries {
		if e.Column == column {
			return &ValidationError{Column: column, Reason: ReasonDuplicateColumn}
		}
	}
	fs.entries = append(fs.entries, Filter{Column: column, Value: v})
	return nil
}

// Len returns the number of entries.
func (fs FilterSet) Len() int { return len(fs.entries) }

// Entries returns the entries in order.
func (fs FilterSet) Entries() []Filter {
	out := make([]Filter, len(fs.entries))
	copy(out, fs.entries)
	return out
}

// MarshalJSON writes the entries as a JSON object in order.
func (fs FilterSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range fs.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Values must be
// scalars or two-number ranges; duplicate keys are rejected.
func (fs *FilterSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrFiltersNotObject
	}

	var out FilterSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		column, ok := tok.(string)
		if !ok {
			return fmt.Errorf("filters: unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		v, err := parseFilterValue(column, raw)
		if err != nil {
			return err
		}
		if err := out.Add(column, v); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}

	*fs = out
	return nil
}

// ==========================================
// SEGMENT RESULTS
// ==========================================

// SegmentResult is a target table plus the filters describing an audience.
type SegmentResult struct {
	TableName string    `json:"table_name"`
	Filters   FilterSet `json:"filters"`
}

// Errors returned by ParseSegmentResult for shape problems.
var (
	ErrFiltersNotObject = errors.New("filters must be a JSON object")
	ErrMissingTableName = errors.New("missing required field: table_name")
	ErrMissingFilters   = errors.New("missing required field: filters")
	ErrDuplicateField   = errors.New("duplicate field")
	ErrTrailingData     = errors.New("unexpected data after JSON value")
)

// ParseSegmentResult decodes data strictly: exactly the keys table_name and
// filters, table_name a non-empty string, filters an object, nothing after.
func ParseSegmentResult(data []byte) (SegmentResult, error) {
	return DecodeSegmentResult(bytes.NewReader(data))
}

// DecodeSegmentResult is ParseSegmentResult over a reader.
func DecodeSegmentResult(r io.Reader) (SegmentResult, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return SegmentResult{}, errors.New("empty body")
		}
		return SegmentResult{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return SegmentResult{}, ErrTrailingData
	}
	if err := checkDuplicateFields(raw); err != nil {
		return SegmentResult{}, err
	}

	var wire struct {
		TableName *string    `json:"table_name"`
		Filters   *FilterSet `json:"filters"`
	}
	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	if err := strict.Decode(&wire); err != nil {
		return SegmentResult{}, err
	}

	if wire.TableName == nil || strings.TrimSpace(*wire.TableName) == "" {
		return SegmentResult{}, ErrMissingTableName
	}
	if wire.Filters == nil {
		return SegmentResult{}, ErrMissingFilters
	}
	return SegmentResult{TableName: *wire.TableName, Filters: *wire.Filters}, nil
}

// checkDuplicateFields rejects an object that repeats a top-level key.
// Non-objects are left for the strict decode to report.
func checkDuplicateFields(raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateField, key)
		}
		seen[key] = true

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return nil
}

// CompiledQuery is a parameterized count query ready to execute.
type CompiledQuery struct {
	SQL  string
	Args []interface{}
}
