package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. The exports mix ISO timestamps with
// Russian day-first formats depending on which system produced the file.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

// parseDateCell parses a date/timestamp cell. Unparseable input is a
// missing value, never an error.
func parseDateCell(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseFloatCell parses a numeric cell, tolerating a comma decimal
// separator. Unparseable input is a missing value.
func parseFloatCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseIntCell parses an integer cell, accepting float renderings of whole
// numbers ("12.0") which spreadsheet exports produce.
func parseIntCell(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func parseIntCellPtr(s string) *int {
	v, ok := parseIntCell(s)
	if !ok {
		return nil
	}
	return &v
}

func parseStringCell(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
