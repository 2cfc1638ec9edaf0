package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// MarkupProbe checks the rendered document structure for the
// machine-checkable subset of WCAG: text alternatives, link and button
// names, form control labels, heading order, page titles, and frame
// titles.
//
// This probe evaluates the serialized DOM from the rendering session,
// not the raw HTTP body, so markup produced by scripts is covered.
type MarkupProbe struct{}

// NewMarkupProbe creates a new MarkupProbe.
func NewMarkupProbe() *MarkupProbe {
	return &MarkupProbe{}
}

// ID returns the probe identifier.
func (p *MarkupProbe) ID() string {
	return ProbeMarkup
}

// NeedsHandle reports that this probe reads the rendered DOM.
func (p *MarkupProbe) NeedsHandle() bool {
	return true
}

// pageIndex collects the nodes the checks need in a single DOM pass.
type pageIndex struct {
	title    *html.Node
	images   []*html.Node
	links    []*html.Node
	buttons  []*html.Node
	controls []*html.Node
	labels   []*html.Node
	headings []*html.Node
	frames   []*html.Node
}

// Run parses the rendered DOM and runs every structural check.
func (p *MarkupProbe) Run(ctx context.Context, _ model.Target, handle engine.Handle) ([]model.Finding, error) {
	if handle == nil {
		return nil, errors.New("markup probe requires a rendering session")
	}

	source, err := handle.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	index := buildPageIndex(doc)

	findings := make([]model.Finding, 0)
	findings = append(findings, p.checkTitle(index)...)
	findings = append(findings, p.checkImages(index)...)
	findings = append(findings, p.checkLinks(index)...)
	findings = append(findings, p.checkButtons(index)...)
	findings = append(findings, p.checkControls(index)...)
	findings = append(findings, p.checkHeadings(index)...)
	findings = append(findings, p.checkFrames(index)...)

	return findings, nil
}

// buildPageIndex walks the DOM once and buckets the nodes of interest.
func buildPageIndex(doc *html.Node) *pageIndex {
	index := &pageIndex{}

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "title":
			if index.title == nil {
				index.title = n
			}
		case "img":
			index.images = append(index.images, n)
		case "a":
			if hasAttr(n, "href") {
				index.links = append(index.links, n)
			}
		case "button":
			index.buttons = append(index.buttons, n)
		case "input":
			switch getAttr(n, "type") {
			case "submit", "button", "reset":
				index.buttons = append(index.buttons, n)
			case "hidden", "image":
				// hidden inputs have no accessible name requirement;
				// image inputs are covered by the alt check family
			default:
				index.controls = append(index.controls, n)
			}
		case "select", "textarea":
			index.controls = append(index.controls, n)
		case "label":
			index.labels = append(index.labels, n)
		case "h1", "h2", "h3", "h4", "h5", "h6":
			index.headings = append(index.headings, n)
		case "iframe":
			index.frames = append(index.frames, n)
		}
	})

	return index
}

// checkTitle verifies the document has a non-empty title.
func (p *MarkupProbe) checkTitle(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	if index.title == nil || textContent(index.title) == "" {
		findings = append(findings, model.NewFinding(
			"page_title_missing",
			"Document has no title",
			"The page has no <title> element or the title is empty. The title is the first thing screen readers announce and identifies the page in tabs and bookmarks.",
			"head",
		))
	}

	return findings
}

// checkImages verifies that every informative image has a text alternative.
// Images marked decorative (empty alt, role=presentation, aria-hidden)
// are exempt.
func (p *MarkupProbe) checkImages(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	for _, img := range index.images {
		if hasAttr(img, "alt") || hasARIALabel(img) || isDecorative(img) {
			continue
		}
		findings = append(findings, model.NewFinding(
			"img_alt_missing",
			"Image has no alternative text",
			"The image has no alt attribute. Screen reader users hear the file name or nothing at all.",
			elementSelector(img),
		))
	}

	return findings
}

// checkLinks verifies that every link has an accessible name.
func (p *MarkupProbe) checkLinks(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	for _, link := range index.links {
		if isDecorative(link) || p.hasAccessibleName(link) {
			continue
		}
		findings = append(findings, model.NewFinding(
			"link_name_empty",
			"Link has no accessible name",
			"The link contains no text, no labelled image, and no ARIA label. Screen reader users hear only \"link\".",
			elementSelector(link),
		))
	}

	return findings
}

// checkButtons verifies that every button has an accessible name.
// Button-type inputs take their name from the value attribute.
func (p *MarkupProbe) checkButtons(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	for _, button := range index.buttons {
		if isDecorative(button) {
			continue
		}
		if button.Data == "input" {
			if strings.TrimSpace(getAttr(button, "value")) != "" ||
				hasARIALabel(button) ||
				strings.TrimSpace(getAttr(button, "title")) != "" {
				continue
			}
		} else if p.hasAccessibleName(button) {
			continue
		}
		findings = append(findings, model.NewFinding(
			"button_name_empty",
			"Button has no accessible name",
			"The button has no text content, value, or ARIA label. Screen reader users cannot tell what it does.",
			elementSelector(button),
		))
	}

	return findings
}

// checkControls verifies that every form control is labelled, either by a
// label element (for= or wrapping) or by ARIA attributes.
func (p *MarkupProbe) checkControls(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	// IDs referenced by label[for] plus controls wrapped by a label.
	labelledIDs := make(map[string]bool)
	wrapped := make(map[*html.Node]bool)
	for _, label := range index.labels {
		if forID := getAttr(label, "for"); forID != "" {
			labelledIDs[forID] = true
		}
		walk(label, func(n *html.Node) {
			if n.Type == html.ElementNode {
				switch n.Data {
				case "input", "select", "textarea":
					wrapped[n] = true
				}
			}
		})
	}

	for _, control := range index.controls {
		if isDecorative(control) {
			continue
		}
		if hasARIALabel(control) || strings.TrimSpace(getAttr(control, "title")) != "" {
			continue
		}
		if wrapped[control] {
			continue
		}
		if id := getAttr(control, "id"); id != "" && labelledIDs[id] {
			continue
		}
		findings = append(findings, model.NewFinding(
			"control_label_missing",
			"Form control has no label",
			"The control is not associated with a label element and has no ARIA label. Screen reader users cannot tell what input is expected.",
			elementSelector(control),
		))
	}

	return findings
}

// checkHeadings verifies that heading levels descend without skipping.
// A jump such as h1 to h3 breaks the outline screen reader users
// navigate by.
func (p *MarkupProbe) checkHeadings(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	previous := 0
	for _, heading := range index.headings {
		level := int(heading.Data[1] - '0')
		if previous > 0 && level > previous+1 {
			findings = append(findings, model.NewFinding(
				"heading_order_skip",
				"Heading level skipped",
				fmt.Sprintf("An h%d follows an h%d. Heading levels should increase by at most one so the document outline stays navigable.", level, previous),
				elementSelector(heading),
			))
		}
		previous = level
	}

	return findings
}

// checkFrames verifies that every iframe has a title describing its content.
func (p *MarkupProbe) checkFrames(index *pageIndex) []model.Finding {
	findings := make([]model.Finding, 0)

	for _, frame := range index.frames {
		if isDecorative(frame) {
			continue
		}
		if strings.TrimSpace(getAttr(frame, "title")) != "" || hasARIALabel(frame) {
			continue
		}
		findings = append(findings, model.NewFinding(
			"iframe_title_missing",
			"Frame has no title",
			"The iframe has no title attribute. Screen reader users cannot tell what the embedded content is before entering it.",
			elementSelector(frame),
		))
	}

	return findings
}

// hasAccessibleName reports whether an element exposes a non-empty name
// through text content, ARIA attributes, a title, or a labelled image.
func (p *MarkupProbe) hasAccessibleName(n *html.Node) bool {
	if textContent(n) != "" {
		return true
	}
	if hasARIALabel(n) || strings.TrimSpace(getAttr(n, "title")) != "" {
		return true
	}

	// A link or button wrapping only an image takes the image's alt text
	// as its name.
	named := false
	walk(n, func(child *html.Node) {
		if named || child.Type != html.ElementNode || child.Data != "img" {
			return
		}
		if strings.TrimSpace(getAttr(child, "alt")) != "" || hasARIALabel(child) {
			named = true
		}
	})
	return named
}
