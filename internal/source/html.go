package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/i94days/internal/record"
)

// HTMLSource handles a saved copy of the travel history web page. Table rows,
// list items, paragraphs and headings become rows; each text node inside them
// is one fragment.
type HTMLSource struct{}

func (s *HTMLSource) Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := rowEmitter{emit: emit}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "head", "template":
				return
			case "tr", "li", "p", "h1", "h2", "h3", "h4", "h5", "h6", "caption":
				rows.row(textNodes(n)...)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return nil
}

// textNodes returns the non-blank text nodes below n in document order.
func textNodes(n *html.Node) []string {
	var out []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return out
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
