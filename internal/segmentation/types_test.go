package segmentation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSet_UnmarshalKeepsOrder(t *testing.T) {
	var fs FilterSet
	err := json.Unmarshal([]byte(`{"kids_flag": true, "age": [25, 55], "income_band": "50-75k", "distance_miles": 2.5}`), &fs)
	require.NoError(t, err)

	entries := fs.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, "kids_flag", entries[0].Column)
	assert.Equal(t, true, entries[0].Value.Value())

	assert.Equal(t, "age", entries[1].Column)
	assert.True(t, entries[1].Value.IsRange())
	low, high := entries[1].Value.Bounds()
	assert.Equal(t, int64(25), low)
	assert.Equal(t, int64(55), high)

	assert.Equal(t, "income_band", entries[2].Column)
	assert.Equal(t, "50-75k", entries[2].Value.Value())

	assert.Equal(t, "distance_miles", entries[3].Column)
	assert.Equal(t, 2.5, entries[3].Value.Value())
}

func TestFilterSet_UnmarshalRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"null value", `{"age": null}`, "Invalid filter value on age"},
		{"object value", `{"age": {"min": 1}}`, "Invalid filter value on age"},
		{"three element array", `{"age": [1, 2, 3]}`, "Invalid filter value on age"},
		{"string range", `{"age": ["a", "b"]}`, "Invalid filter value on age"},
		{"empty array", `{"age": []}`, "Invalid filter value on age"},
		{"duplicate key", `{"age": 1, "age": 2}`, "Duplicate filter column: age"},
		{"not an object", `[1, 2]`, "filters must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fs FilterSet
			err := json.Unmarshal([]byte(tt.input), &fs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFilterSet_MarshalKeepsOrder(t *testing.T) {
	fs, err := NewFilterSet(
		Filter{Column: "zip", Value: Scalar("94110")},
		Filter{Column: "age", Value: Range(int64(25), int64(55))},
		Filter{Column: "kids_flag", Value: Scalar(true)},
	)
	require.NoError(t, err)

	out, err := json.Marshal(fs)
	require.NoError(t, err)
	assert.Equal(t, `{"zip":"94110","age":[25,55],"kids_flag":true}`, string(out))
}

func TestNewFilterSet_Duplicate(t *testing.T) {
	_, err := NewFilterSet(
		Filter{Column: "age", Value: Scalar(int64(1))},
		Filter{Column: "age", Value: Scalar(int64(2))},
	)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonDuplicateColumn, ve.Reason)
}

func TestParseSegmentResult(t *testing.T) {
	seg, err := ParseSegmentResult([]byte(`{"table_name": "resident_core", "filters": {"age": [25, 55], "kids_flag": true}}`))
	require.NoError(t, err)
	assert.Equal(t, "resident_core", seg.TableName)
	assert.Equal(t, 2, seg.Filters.Len())

	seg, err = ParseSegmentResult([]byte(`{"table_name": "resident_core", "filters": {}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, seg.Filters.Len())
}

func TestParseSegmentResult_Strict(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown field", `{"table_name": "t", "filters": {}, "limit": 10}`, "unknown field"},
		{"missing table_name", `{"filters": {}}`, "table_name"},
		{"empty table_name", `{"table_name": " ", "filters": {}}`, "table_name"},
		{"missing filters", `{"table_name": "t"}`, "filters"},
		{"null filters", `{"table_name": "t", "filters": null}`, "filters"},
		{"filters not object", `{"table_name": "t", "filters": "age > 3"}`, "filters must be a JSON object"},
		{"table_name not string", `{"table_name": 5, "filters": {}}`, "cannot unmarshal"},
		{"trailing data", `{"table_name": "t", "filters": {}} {}`, "unexpected data"},
		{"repeated table_name", `{"table_name": "a", "table_name": "b", "filters": {}}`, "duplicate field: table_name"},
		{"repeated filters", `{"table_name": "t", "filters": {}, "filters": {"age": 3}}`, "duplicate field: filters"},
		{"not json", `Sure! Here is the segment`, "invalid character"},
		{"empty", ``, "empty body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSegmentResult([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckRanges(t *testing.T) {
	ok, _ := NewFilterSet(
		Filter{Column: "age", Value: Range(int64(25), int64(25))},
		Filter{Column: "distance_miles", Value: Range(0.5, int64(3))},
	)
	assert.NoError(t, CheckRanges(ok))

	bad, _ := NewFilterSet(
		Filter{Column: "kids_flag", Value: Scalar(true)},
		Filter{Column: "age", Value: Range(int64(55), int64(25))},
	)
	err := CheckRanges(bad)
	assert.EqualError(t, err, "Invalid range filter on age")

	mixed, _ := NewFilterSet(Filter{Column: "distance_miles", Value: Range(int64(3), 2.5)})
	assert.Error(t, CheckRanges(mixed))
}

func TestCheckColumns(t *testing.T) {
	allowed := map[string]struct{}{"age": {}, "kids_flag": {}}

	fs, _ := NewFilterSet(Filter{Column: "age", Value: Scalar(int64(40))})
	assert.NoError(t, CheckColumns(fs, allowed))

	fs, _ = NewFilterSet(
		Filter{Column: "age", Value: Scalar(int64(40))},
		Filter{Column: "nonexistent_col", Value: Scalar(int64(1))},
	)
	assert.EqualError(t, CheckColumns(fs, allowed), "Invalid filter column: nonexistent_col")
}

func TestValidate_RangeCheckedFirst(t *testing.T) {
	fs, _ := NewFilterSet(
		Filter{Column: "nonexistent_col", Value: Scalar(int64(1))},
		Filter{Column: "age", Value: Range(int64(9), int64(1))},
	)

	err := Validate(fs, map[string]struct{}{"age": {}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonInvalidRange, ve.Reason)
}
