package segmentation

// CheckRanges rejects any range whose low bound exceeds its high bound.
// It needs no catalog and runs before any database round trip.
func CheckRanges(filters FilterSet) error {
	for _, f := range filters.entries {
		if !f.Value.IsRange() {
			continue
		}
		low, high := f.Value.Bounds()
		cmp, ok := compareNumbers(low, high)
		if !ok || cmp > 0 {
			return &ValidationError{Column: f.Column, Reason: ReasonInvalidRange}
		}
	}
	return nil
}

// CheckColumns rejects the first filter column not in allowed.
func CheckColumns(filters FilterSet, allowed map[string]struct{}) error {
	for _, f := range filters.entries {
		if _, ok := allowed[f.Column]; !ok {
			return &ValidationError{Column: f.Column, Reason: ReasonUnknownColumn}
		}
	}
	return nil
}

// CheckTable rejects a table not in allowed.
func CheckTable(table string, allowed map[string]struct{}) error {
	if _, ok := allowed[table]; !ok {
		return &ValidationError{Column: table, Reason: ReasonInvalidTable}
	}
	return nil
}

// Validate runs CheckRanges then CheckColumns.
func Validate(filters FilterSet, allowed map[string]struct{}) error {
	if err := CheckRanges(filters); err != nil {
		return err
	}
	return CheckColumns(filters, allowed)
}
