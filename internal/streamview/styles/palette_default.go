package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:          "default",
	BorderStyle:   "rounded",
	AuthorPalette: append([]string(nil), AuthorColorPalette...),
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Post: PostColors{
		Own:      "81",
		Other:    "147",
		Mention:  "214",
		Edited:   "243",
		Selected: "237",
		Editing:  "220",
	},
	Indicator: IndicatorColors{
		Unread:  "75",
		NewPost: "41",
		Error:   "203",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Popup:        "236",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
	Code: CodeColors{
		ChromaStyle: "monokai",
		Gutter:      "242",
		DiffAdd:     "41",
		DiffRemove:  "203",
		DiffHunk:    "75",
	},
}
