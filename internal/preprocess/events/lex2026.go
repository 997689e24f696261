package events

import "github.com/JonMunkholm/badgemerge/internal/preprocess"

// Lexington2026 covers the 2026 mid-year meeting in Lexington.
var Lexington2026 = &preprocess.Rules{
	RuleName:    "Lexington 2026",
	AlsoKnownAs: []string{"Lex 2026", "Mid-Year Meeting 2026"},
	Values: map[string]string{
		"Steak":      "S",
		"Fish":       "F",
		"Vegetarian": "V",
		"Chicken":    "C",
		"Vegan":      "VG",

		"No Club Affiliation": " ",
		"No Affiliation":      " ",

		"Mid-Year Meeting 2026 - Lexington": "Lexington 2026",
		"Mid-Year Meeting 2026":             "Lexington 2026",
	},
	Contains: []preprocess.Replacement{
		{Find: "- Reserved"},
		{Find: "- SPONSOR"},
		{Find: "- AFRP Board Reserved"},
		{Find: "- Will be removed after dinner"},
		{Find: "Ramallah Federation in "},
		{Find: "American Federation of Ramallah Palestine - "},
		{Find: "AFRP - "},
	},
}

func init() {
	preprocess.Register(Lexington2026)
}
