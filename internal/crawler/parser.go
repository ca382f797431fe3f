package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// LinkExtractor returns the raw link targets found in a document.
type LinkExtractor interface {
	ExtractLinks(r io.Reader) ([]string, error)
}

// Parser extracts <a href> targets from HTML using golang.org/x/net/html,
// which tolerates the malformed markup common on real sites.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ExtractLinks returns the href of every anchor in document order.
// Script, mail, phone, and data links are skipped along with bare "#".
// Values are returned unresolved.
func (p *Parser) ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := strings.TrimSpace(getAttr(n, "href")); followable(href) {
				links = append(links, href)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return links, nil
}

// followable reports whether href can lead to another HTTP resource.
func followable(href string) bool {
	if href == "" || href == "#" {
		return false
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
