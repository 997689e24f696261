package merge

import (
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatName trims a name and converts it to title case. Each hyphenated
// part is capitalised on its own, so "SMITH-JONES" becomes "Smith-Jones".
// Null stays null.
func FormatName(c pgtype.Text) pgtype.Text {
	if !c.Valid {
		return c
	}
	caser := cases.Title(language.English)
	parts := strings.Split(strings.TrimSpace(c.String), "-")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return sheet.Text(strings.Join(parts, "-"))
}

// Gender values written to the merged table.
const (
	Male   = "Male"
	Female = "Female"
)

// NormalizeGender maps CRM option-set codes and free text onto Male, Female
// or blank. A blank source value means Female. ok is false when the value
// was not recognised; the result is then an empty cell.
func NormalizeGender(c pgtype.Text) (out pgtype.Text, ok bool) {
	v := strings.ToLower(strings.TrimSpace(c.String))
	switch v {
	case "":
		return sheet.Text(Female), true
	case "1", "1.0", "male", "m":
		return sheet.Text(Male), true
	case "2", "2.0", "female", "f":
		return sheet.Text(Female), true
	}
	return sheet.Text(""), false
}
