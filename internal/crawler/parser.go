package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and navigable links from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the link information extracted from an HTML page.
//
// Design decision: We classify links in the same pass that collects them
// because:
//  1. Single parsing pass is more efficient
//  2. The caller needs internal links far more often than the full set
//  3. Classification needs the base URL the parser already holds
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains all discovered URLs (href attributes), resolved
	// to absolute form.
	Links []string

	// InternalLinks are links on the same host as the base URL.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts the title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
	}

	// Walk the DOM tree
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		// Extract title text
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		// Extract links
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved != "" {
				result.Links = append(result.Links, resolved)
				p.classifyLink(resolved, result)
			}
		}
	}
}

// resolveURL resolves a relative URL against the base URL.
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows proper link classification
//  3. Reduces ambiguity in results
func (p *Parser) resolveURL(href string) string {
	if href == "" {
		return ""
	}

	// Skip pseudo-links that never lead to a document
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		href == "#" {
		return ""
	}

	// Parse and resolve
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	return resolved.String()
}

// classifyLink categorizes a link as internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}

	// Compare the full host first (including port for non-standard ports),
	// then the hostname alone.
	if strings.EqualFold(u.Host, p.baseURL.Host) || strings.EqualFold(u.Hostname(), p.baseURL.Hostname()) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}

	if u.Host != "" {
		result.ExternalLinks = append(result.ExternalLinks, link)
		return
	}

	// Relative link (internal) - shouldn't happen after resolveURL
	result.InternalLinks = append(result.InternalLinks, link)
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
