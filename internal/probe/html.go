package probe

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether the node carries the attribute at all.
// An empty alt="" is a deliberate decorative marker, so several checks
// need presence rather than value.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// walk traverses the subtree depth-first in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// textContent returns the trimmed, whitespace-collapsed text of the subtree.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// elementSelector renders a short locator for an element so findings can
// point at the offending markup. It prefers the most identifying
// attribute available.
func elementSelector(n *html.Node) string {
	if id := getAttr(n, "id"); id != "" {
		return fmt.Sprintf("%s#%s", n.Data, id)
	}
	if name := getAttr(n, "name"); name != "" {
		return fmt.Sprintf(`%s[name=%q]`, n.Data, name)
	}
	if src := getAttr(n, "src"); src != "" {
		return fmt.Sprintf(`%s[src=%q]`, n.Data, truncateValue(src))
	}
	if href := getAttr(n, "href"); href != "" {
		return fmt.Sprintf(`%s[href=%q]`, n.Data, truncateValue(href))
	}
	if class := getAttr(n, "class"); class != "" {
		return fmt.Sprintf(`%s[class=%q]`, n.Data, truncateValue(class))
	}
	return n.Data
}

// truncateValue keeps selectors readable when attribute values are long.
func truncateValue(v string) string {
	const maxLen = 60
	if len(v) <= maxLen {
		return v
	}
	return v[:maxLen] + "..."
}

// isDecorative reports whether an element opts out of the accessibility
// tree via role or aria-hidden.
func isDecorative(n *html.Node) bool {
	switch getAttr(n, "role") {
	case "presentation", "none":
		return true
	}
	return getAttr(n, "aria-hidden") == "true"
}

// hasARIALabel reports whether the element names itself through ARIA
// attributes.
func hasARIALabel(n *html.Node) bool {
	return strings.TrimSpace(getAttr(n, "aria-label")) != "" ||
		strings.TrimSpace(getAttr(n, "aria-labelledby")) != ""
}
