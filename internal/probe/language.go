package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// LanguageProbe checks document and element language declarations.
// Screen readers pick pronunciation rules from the lang attribute; a
// missing or invalid declaration makes them read the page with the
// wrong voice.
type LanguageProbe struct{}

// NewLanguageProbe creates a new LanguageProbe.
func NewLanguageProbe() *LanguageProbe {
	return &LanguageProbe{}
}

// ID returns the probe identifier.
func (p *LanguageProbe) ID() string {
	return ProbeLanguage
}

// NeedsHandle reports that this probe reads the rendered DOM.
func (p *LanguageProbe) NeedsHandle() bool {
	return true
}

// Run evaluates the lang attributes of the document and its elements.
func (p *LanguageProbe) Run(ctx context.Context, _ model.Target, handle engine.Handle) ([]model.Finding, error) {
	if handle == nil {
		return nil, errors.New("language probe requires a rendering session")
	}

	source, err := handle.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	findings := make([]model.Finding, 0)
	findings = append(findings, p.checkDocumentLanguage(doc)...)
	findings = append(findings, p.checkElementLanguages(doc)...)

	return findings, nil
}

// checkDocumentLanguage verifies the html element's lang declaration.
func (p *LanguageProbe) checkDocumentLanguage(doc *html.Node) []model.Finding {
	findings := make([]model.Finding, 0)

	root := findHTMLElement(doc)
	if root == nil {
		// The parser always synthesizes an html element; a missing one
		// means the source was not HTML at all. Nothing to evaluate.
		return findings
	}

	lang := strings.TrimSpace(getAttr(root, "lang"))
	if lang == "" {
		findings = append(findings, model.NewFinding(
			"page_lang_missing",
			"Document language is not declared",
			"The html element has no lang attribute. Screen readers fall back to their default voice and mispronounce the content.",
			"html",
		))
		return findings
	}

	if !isValidLanguageTag(lang) {
		findings = append(findings, model.NewFinding(
			"page_lang_invalid",
			"Document language tag is invalid",
			fmt.Sprintf("The html element declares lang=%q, which is not a valid BCP 47 language tag.", lang),
			"html",
		))
		return findings
	}

	// When both lang and xml:lang are present their primary language
	// subtags must agree, or different processors pick different voices.
	xmlLang := strings.TrimSpace(getAttr(root, "xml:lang"))
	if xmlLang != "" && !strings.EqualFold(primarySubtag(lang), primarySubtag(xmlLang)) {
		findings = append(findings, model.NewFinding(
			"page_lang_mismatch",
			"lang and xml:lang disagree",
			fmt.Sprintf("The html element declares lang=%q but xml:lang=%q. Processors that honor different attributes will pick different languages.", lang, xmlLang),
			"html",
		))
	}

	return findings
}

// checkElementLanguages verifies lang attributes on elements below the root.
// Language switches inside the page are good practice, but an invalid tag
// is worse than none because it silently disables pronunciation switching.
func (p *LanguageProbe) checkElementLanguages(doc *html.Node) []model.Finding {
	findings := make([]model.Finding, 0)

	root := findHTMLElement(doc)
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n == root {
			return
		}
		lang := strings.TrimSpace(getAttr(n, "lang"))
		if lang == "" {
			// An absent attribute inherits from the ancestor; an empty
			// one is treated the same way by assistive technology.
			return
		}
		if !isValidLanguageTag(lang) {
			findings = append(findings, model.NewFinding(
				"element_lang_invalid",
				"Element language tag is invalid",
				fmt.Sprintf("The element declares lang=%q, which is not a valid BCP 47 language tag.", lang),
				elementSelector(n),
			))
		}
	})

	return findings
}

// findHTMLElement returns the document's html element.
func findHTMLElement(doc *html.Node) *html.Node {
	var root *html.Node
	walk(doc, func(n *html.Node) {
		if root == nil && n.Type == html.ElementNode && n.Data == "html" {
			root = n
		}
	})
	return root
}

// isValidLanguageTag reports whether the value parses as a BCP 47 tag.
// language.Parse canonicalizes aggressively, so only values it rejects
// outright are flagged.
func isValidLanguageTag(tag string) bool {
	_, err := language.Parse(tag)
	return err == nil
}

// primarySubtag returns the primary language subtag of a BCP 47 value.
func primarySubtag(tag string) string {
	primary, _, _ := strings.Cut(tag, "-")
	return primary
}
