package render

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// PlainText flattens inline markup (<i>, <sup>, entities) imported with
// titles and abstracts into plain text with collapsed whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// SortCitations orders citations case-insensitively by citation string.
func SortCitations(c []Citation) {
	folder := cases.Fold()
	keys := make(map[string]string, len(c))
	for _, cit := range c {
		if _, ok := keys[cit.Citation]; !ok {
			keys[cit.Citation] = folder.String(cit.Citation)
		}
	}
	sort.SliceStable(c, func(i, j int) bool {
		return keys[c[i].Citation] < keys[c[j].Citation]
	})
}
