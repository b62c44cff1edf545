package structurer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is one tagged text node of a structured page.
// Tag is one of: title, h1..h6, p, li.
type Element struct {
	Tag  string
	Text string
}

// Structure parses a fetched page into a flat, lazy sequence of tagged text
// elements in document order. The first element is always the page title
// ("No Title" when the page has none); every other element has whitespace
// collapsed to single spaces and is suppressed when empty after trimming.
func Structure(html string) (iter.Seq[Element], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return func(yield func(Element) bool) {
		title := collapse(doc.Find("title").First().Text())
		if title == "" {
			title = "No Title"
		}
		if !yield(Element{Tag: "title", Text: title}) {
			return
		}

		doc.Find("h1, h2, h3, h4, h5, h6, p, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := collapse(sel.Text())
			if text == "" {
				return true
			}
			return yield(Element{Tag: goquery.NodeName(sel), Text: text})
		})
	}, nil
}

// HeadingLevel returns 1..6 for h1..h6 tags and 0 for anything else.
func HeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
