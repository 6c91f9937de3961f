package core

import (
	"strings"
	"unicode/utf8"
)

// rules.go holds the asset rules shared by the import row validator, the
// single-record validator and the bulk mutator. Each path phrases failures
// in its own words, but the decision is made here.

// NormalizeLabel trims surrounding whitespace. Labels are otherwise compared exactly.
func NormalizeLabel(label string) string {
	return strings.TrimSpace(label)
}

// NotesWithinLimit reports whether notes fit in NotesMaxLength characters.
func NotesWithinLimit(notes string) bool {
	return utf8.RuneCountInString(notes) <= NotesMaxLength
}

// ZoneNeedsWarehouse reports the rule "a zone can only be set together with its warehouse".
func ZoneNeedsWarehouse(zoneSet, warehouseSet bool) bool {
	return zoneSet && !warehouseSet
}

// QuantityValid reports whether quantity is allowed for the asset type.
// Serialized types always hold exactly one unit.
func QuantityValid(quantity int, serialized bool) bool {
	if quantity < 1 {
		return false
	}
	return !serialized || quantity == 1
}

// NormalizeNotes trims notes and maps blank to nil.
func NormalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil
	}
	return &n
}
