// Package events registers the built-in per-event rule sets. Import it for
// its side effects.
package events

import "github.com/JonMunkholm/badgemerge/internal/preprocess"

// Convention2025 shortens meal and activity names for the 2025 convention
// badges and strips reservation notes from table and club names.
var Convention2025 = &preprocess.Rules{
	RuleName:    "Convention 2025",
	AlsoKnownAs: []string{"Convention 2025 - San Francisco"},
	Values: map[string]string{
		"Steak":      "S",
		"Fish":       "F",
		"Vegetarian": "V",

		"Level Up Party w/ DJ Habibeats (17+)":  "Level Up",
		"Madarae Night Club (21+)":              "Madarae",
		"Young Adults Night at Nola (18+ Only)": "Nola",
		"Pizza Pool Day (Ages 13-17 only)":      "Pool Day",
		"Hamooleh Family Feud":                  "Family Feud",
		"Top Golf (Ages 13 - 17)":               "Top Golf",
		"Youth DJ Party  (Ages 13-17)":          "DJ Party",
		"Ladies Trip to Santana Row":            "Ladies Trip",
		"Discovery Bay Museum / Sausalito Trip": "Discovery Bay Museum",
		"Casino Night":                          "Casino Night",

		"Child: Chicken fingers & French fries": "CFF",
		"Child: Hamburger & French fries":       "HFF",

		"No Club Affiliation": " ",
	},
	Contains: []preprocess.Replacement{
		{Find: "- SF Reserved"},
		{Find: "- SF reserved"},
		{Find: "- SPONSOR"},
		{Find: "- AFRP"},
		{Find: "- Will be removed after dinner"},
		{Find: "- Brezeit"},
		{Find: "- SF/Brezeit"},
		{Find: "- (children must be supervised by parent. $60 per child)"},
		{Find: "-  (children must be supervised by parent. $60 per child)"},
		{Find: "Ramallah Federation in "},
		{Find: "- (children must be supervised by parent)"},
	},
}

func init() {
	preprocess.Register(Convention2025)
}
