// Package sources discovers and reads the four spreadsheet exports a merge
// run consumes: the registration list, seating chart, QR code assignments
// and form responses.
package sources

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind identifies which export a file holds.
type Kind string

const (
	Registration  Kind = "Registration List"
	Seating       Kind = "Seating Chart"
	QRCodes       Kind = "QR Codes"
	FormResponses Kind = "Form Responses"
)

// Kinds lists every required kind in detection order.
var Kinds = []Kind{Registration, Seating, QRCodes, FormResponses}

// kindPatterns are matched against the normalised lower-case filename.
// Order within a kind does not matter; order across kinds follows Kinds.
var kindPatterns = map[Kind][]string{
	Registration: {
		"registration list", "registrationlist", "registration", "reg list", "reglist",
	},
	Seating: {
		"seating chart", "seatingchart", "seating", "seat chart",
	},
	QRCodes: {
		"qr codes", "qrcodes", "qr code", "qr",
	},
	FormResponses: {
		"form responses", "formresponses", "form response",
		"from responses", "fromresponses", "from response",
	},
}

var separatorRe = regexp.MustCompile(`[_\-]+`)

// normalizeName lower-cases a filename and collapses "_" and "-" runs to a
// single space so "Seating_Chart" and "seating-chart" compare equal.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	return separatorRe.ReplaceAllString(name, " ")
}

// DetectKind returns the kind a filename belongs to, or "" when none match.
func DetectKind(filename string) Kind {
	base := filepath.Base(filename)
	name := normalizeName(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, kind := range Kinds {
		for _, pattern := range kindPatterns[kind] {
			if strings.Contains(name, pattern) {
				return kind
			}
		}
	}
	return ""
}

// IsCandidate reports whether a filename is a readable export. Windows
// Zone.Identifier streams and Office lock files are never candidates.
func IsCandidate(filename string) bool {
	base := filepath.Base(filename)
	lower := strings.ToLower(base)
	if strings.HasPrefix(lower, "~$") || strings.HasSuffix(lower, "zone.identifier") {
		return false
	}
	switch filepath.Ext(lower) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}
