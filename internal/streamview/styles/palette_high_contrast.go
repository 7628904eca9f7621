package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Post: PostColors{
		Own:      "87",
		Other:    "225",
		Mention:  "226",
		Edited:   "250",
		Selected: "238",
		Editing:  "229",
	},
	Indicator: IndicatorColors{
		Unread:  "51",
		NewPost: "46",
		Error:   "196",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		SelectedItem: "51",
		Popup:        "16",
	},
	Borders: BorderColors{
		ActivePane:   "231",
		InactivePane: "250",
		Divider:      "248",
	},
	Code: CodeColors{
		ChromaStyle: "bw",
		Gutter:      "250",
		DiffAdd:     "46",
		DiffRemove:  "196",
		DiffHunk:    "51",
	},
}
