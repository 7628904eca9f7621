package composer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizeText turns composer content into the plain text that is posted.
// Markup has its line breaks and block elements turned into newlines and its
// entities decoded. Non-breaking spaces become spaces, CRLF becomes LF and
// surrounding whitespace is trimmed.
func NormalizeText(value string, markup bool) string {
	if markup {
		value = markupToText(value)
	}
	value = strings.ReplaceAll(value, NBSP, " ")
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	return strings.TrimSpace(value)
}

var blockElements = map[atom.Atom]bool{
	atom.Div:        true,
	atom.P:          true,
	atom.Li:         true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Tr:         true,
	atom.Ul:         true,
	atom.Ol:         true,
}

func markupToText(markup string) string {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return markup
	}

	var b strings.Builder
	newline := func() {
		s := b.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			newline()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			newline()
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}
