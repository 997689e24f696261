package sheet

// convert.go turns spreadsheet cell text into typed values.
//
// Spreadsheet exports are inconsistent about timestamps:
//   - US dates with or without a time of day, 12 or 24 hour clocks
//   - "-" or "." used in place of "/"
//   - ISO 8601 with or without an offset
//   - raw Excel serial numbers when a column lost its number format
//
// ToTimestamp returns Valid=false for empty or unrecognised input so callers
// can decide how a missing timestamp should rank.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	usDateSeparators = regexp.MustCompile(`^(\d{1,2})[-.](\d{1,2})[-.](\d{2,4})`)
	meridiemSuffix   = regexp.MustCompile(`(?i)\s*([ap])\.?m\.?$`)
	excelSerial      = regexp.MustCompile(`^\d{4,6}(\.\d+)?$`)
)

// Layouts split by year format for proper 2-digit year handling.
var (
	fourDigitYearLayouts = []string{
		"1/2/2006 3:04:05 PM", "1/2/2006 3:04 PM", "1/2/2006 3 PM",
		"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04",
		"2006-01-02T15:04", "2006-01-02", "2006/01/02",
		"Jan 2, 2006 3:04 PM", "Jan 2, 2006", "2 Jan 2006",
	}
	twoDigitYearLayouts = []string{
		"1/2/06 3:04:05 PM", "1/2/06 3:04 PM", "1/2/06 15:04:05", "1/2/06 15:04", "1/2/06",
	}
	zonedLayouts = []string{
		time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05 -0700",
	}
)

// ToTimestamp parses a cell as a point in time. Inputs without an explicit
// offset are interpreted in loc (UTC when loc is nil).
func ToTimestamp(s string, loc *time.Location) pgtype.Timestamptz {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	if excelSerial.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return pgtype.Timestamptz{Time: inLocation(t, loc), Valid: true}
			}
		}
	}

	s = usDateSeparators.ReplaceAllString(s, "$1/$2/$3")
	s = meridiemSuffix.ReplaceAllStringFunc(s, func(m string) string {
		if strings.ContainsAny(m, "pP") {
			return " PM"
		}
		return " AM"
	})

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	return pgtype.Timestamptz{Valid: false}
}

// inLocation keeps the wall clock of t but places it in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// CleanHeader normalises a header cell: trims whitespace and strips the
// Excel formula wrapper (="...") some exports leave behind.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
