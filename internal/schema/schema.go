// Package schema maps the human-edited headers of each source export onto
// the canonical column names the merge engine works with.
package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"golang.org/x/text/unicode/norm"
)

// Canonical column names shared across sources.
const (
	ContactID = "Contact ID"
	MemberID  = "Member ID"
	FirstName = "First Name"
	LastName  = "Last Name"
	Title     = "Title"
	LocalClub = "Local Club"
	Gender    = "Gender"
	Age       = "Age"
	Event     = "Event"
	Status    = "Status"
	Table     = "Table"
	Question  = "Question"
	Response  = "Response"
	QRCode    = "QR Code"
	CreatedOn = "Created On"
)

// Column is one canonical column and the source headers accepted for it.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
	// AliasesFirst tries the aliases before the canonical name. It is set
	// where an export carries an unrelated column under the canonical name.
	AliasesFirst bool
}

func (c Column) candidates() []string {
	if c.AliasesFirst {
		return append(append([]string{}, c.Aliases...), c.Name)
	}
	return append([]string{c.Name}, c.Aliases...)
}

// Spec is the canonical schema of one source kind.
type Spec struct {
	Kind    string
	Columns []Column
}

// Required returns the names of the required columns.
func (s Spec) Required() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// headerKey folds a header for loose comparison: compatibility
// normalisation (non-breaking spaces become spaces), lower case and
// collapsed whitespace.
func headerKey(h string) string {
	h = norm.NFKC.String(h)
	h = whitespaceRe.ReplaceAllString(strings.TrimSpace(h), " ")
	return strings.ToLower(h)
}

// Standardize renames the headers of t to the canonical names of spec and
// returns the required canonical columns it could not find.
//
// For each canonical column the canonical name is tried first, then each
// alias in order (reversed for AliasesFirst columns). A candidate matches a header exactly after trimming, or
// failing that after case and whitespace folding. A header already claimed
// by an earlier column is never reused.
func Standardize(t *sheet.Table, spec Spec) (missing []string) {
	trim := make(map[string]string)
	for _, h := range t.Columns() {
		if c := sheet.CleanHeader(h); c != h {
			trim[h] = c
		}
	}
	t.Rename(trim)

	headers := t.Columns()
	folded := make(map[string]string, len(headers))
	for _, h := range headers {
		if _, ok := folded[headerKey(h)]; !ok {
			folded[headerKey(h)] = h
		}
	}

	claimed := make(map[string]bool)
	rename := make(map[string]string)
	for _, col := range spec.Columns {
		found := ""
		for _, candidate := range col.candidates() {
			if t.Has(candidate) && !claimed[candidate] {
				found = candidate
				break
			}
			if h, ok := folded[headerKey(candidate)]; ok && !claimed[h] {
				found = h
				break
			}
		}
		if found == "" {
			if col.Required {
				missing = append(missing, col.Name)
			}
			continue
		}
		claimed[found] = true
		if found != col.Name {
			rename[found] = col.Name
		}
	}

	// Rename through placeholders so a header may take a name another
	// claimed header is giving up. An unclaimed header that already holds a
	// canonical name is moved aside.
	staged := make(map[string]string, len(rename))
	final := make(map[string]string, len(rename))
	i := 0
	for from, to := range rename {
		tmp := "\x00" + strconv.Itoa(i)
		i++
		staged[from] = tmp
		final[tmp] = to
	}
	t.Rename(staged)
	for _, to := range final {
		if t.Has(to) {
			t.Rename(map[string]string{to: to + " (original)"})
		}
	}
	t.Rename(final)
	return missing
}
