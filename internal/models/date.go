package models

import "time"

// filterDateLayouts are the accepted date formats for Filters.DateFrom/DateTo.
var filterDateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseFilterDate parses a filter date string. Returns false for empty
// or unparseable input, which callers treat as "no constraint".
func ParseFilterDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range filterDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
