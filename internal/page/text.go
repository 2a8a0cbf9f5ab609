package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextRows flattens a markup fragment into readable lines: one line per
// table row with cells separated by " | ", one line per block element.
// The fragment is tokenized, not parsed into a tree, so table rows without
// their table still come through.
func TextRows(markup string) []string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		rows  []string
		cells []string
		cell  strings.Builder
		inRow bool
	)
	flushCell := func() {
		text := strings.Join(strings.Fields(cell.String()), " ")
		cell.Reset()
		if text != "" {
			cells = append(cells, text)
		}
	}
	flushLine := func() {
		flushCell()
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
		cells = cells[:0]
	}
	for {
		switch z.Next() {
		case html.ErrorToken:
			flushLine()
			return rows
		case html.TextToken:
			cell.Write(z.Text())
			cell.WriteByte(' ')
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Tr:
				flushLine()
				inRow = true
			case atom.Td, atom.Th:
				flushCell()
			case atom.Script, atom.Style:
				skipElement(z, a)
			case atom.Br:
				if !inRow {
					flushLine()
				}
			default:
				if isBlock(a) && !inRow {
					flushLine()
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Tr:
				flushLine()
				inRow = false
			case atom.Td, atom.Th:
				flushCell()
			default:
				if isBlock(a) && !inRow {
					flushLine()
				}
			}
		}
	}
}

func skipElement(z *html.Tokenizer, a atom.Atom) {
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == a {
				return
			}
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tbody, atom.Thead,
		atom.Blockquote, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Section, atom.Article:
		return true
	}
	return false
}
