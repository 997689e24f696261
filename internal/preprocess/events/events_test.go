package events

import (
	"io"
	"log/slog"
	"testing"

	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
)

func TestBuiltinsRegistered(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"Convention 2025 - San Francisco", "Convention 2025"},
		{"convention 2025", "Convention 2025"},
		{"Mid-Year Meeting 2026 - Lexington", "Lexington 2026"},
		{"Lex 2026", "Lexington 2026"},
		{"Spring Picnic", preprocess.DefaultName},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			if got := preprocess.Lookup(tt.event).Name(); got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.event, got, tt.want)
			}
		})
	}
}

func TestConvention2025Values(t *testing.T) {
	p, err := preprocess.New(Convention2025, preprocess.Config{MainEvent: "Convention 2025"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"Steak":                                "S",
		" Madarae Night Club (21+) ":           "Madarae",
		"Table 4 - SF Reserved":                "Table 4",
		"Ramallah Federation in San Francisco": "San Francisco",
		"Table 9 - SPONSOR - Brezeit":          "Table 9",
		"No Club Affiliation":                  "",
		"Casino Night":                         "Casino Night",
	}
	for in, want := range tests {
		if got := p.Value(sheet.Text(in)); got != want {
			t.Errorf("Value(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLexington2026Values(t *testing.T) {
	p, err := preprocess.New(Lexington2026, preprocess.Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"Vegan":                                    "VG",
		"Mid-Year Meeting 2026 - Lexington":        "Lexington 2026",
		"AFRP - Lexington Club":                    "Lexington Club",
		"American Federation of Ramallah Palestine - Detroit": "Detroit",
		"Table 2 - AFRP Board Reserved":            "Table 2",
	}
	for in, want := range tests {
		if got := p.Value(sheet.Text(in)); got != want {
			t.Errorf("Value(%q) = %q, want %q", in, got, want)
		}
	}
}
