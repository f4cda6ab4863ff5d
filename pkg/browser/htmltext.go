package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot is a reduced copy of a page's markup kept for diagnostics when a
// flow fails.
type Snapshot struct {
	Title     string `json:"title,omitempty"`
	HTML      string `json:"html"`
	Truncated bool   `json:"truncated,omitempty"`
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"link":     true,
	"meta":     true,
}

var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "aside": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "ul": true,
	"ol": true, "li": true, "table": true, "tr": true, "form": true,
	"fieldset": true, "blockquote": true, "pre": true, "br": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// attributes that identify admin UI elements
var keptAttributes = map[string]bool{
	"id": true, "class": true, "name": true, "type": true, "value": true,
	"role": true, "aria-label": true, "href": true, "checked": true,
	"selected": true, "data-slug": true, "data-type": true,
}

// CleanHTML strips scripts, styles and noise attributes from rawHTML, keeping
// the element structure and the attributes useful for selector debugging.
func CleanHTML(rawHTML string, maxLength int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	snap := &Snapshot{Title: findTitle(doc)}
	var b strings.Builder
	snap.Truncated = writeClean(doc, &b, maxLength, 0)
	snap.HTML = b.String()
	return snap, nil
}

func writeClean(n *html.Node, b *strings.Builder, maxLength, depth int) bool {
	if maxLength > 0 && b.Len() >= maxLength {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return false
		}
		if maxLength > 0 && b.Len()+len(text) > maxLength {
			b.WriteString(text[:maxLength-b.Len()])
			b.WriteString("...")
			return true
		}
		b.WriteString(text)
		return false
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedElements[tag] {
			return false
		}
		if depth > 0 && blockElements[tag] {
			b.WriteString("\n")
			b.WriteString(strings.Repeat("  ", depth))
		}
		b.WriteString("<" + tag)
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if keptAttributes[key] || strings.HasPrefix(key, "data-") {
				fmt.Fprintf(b, ` %s="%s"`, key, html.EscapeString(a.Val))
			}
		}
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if writeClean(c, b, maxLength, depth+1) {
				return true
			}
		}
		if !voidElements[tag] {
			b.WriteString("</" + tag + ">")
		}
		return false
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if writeClean(c, b, maxLength, depth) {
			return true
		}
	}
	return false
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// HTMLToText renders editor markup as plain text: block elements become line
// breaks, entities are decoded, block-editor comments are dropped. Input
// without markup is returned with whitespace normalized.
func HTMLToText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return normalizeText(fragment)
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return normalizeText(fragment)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if skippedElements[tag] {
				return
			}
			if blockElements[tag] {
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[strings.ToLower(n.Data)] {
			b.WriteString("\n")
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return normalizeText(b.String())
}

// normalizeText trims every line, collapses inner runs of spaces and drops
// empty lines.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
