package probe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// maxScaleFloor is the smallest maximum-scale that still lets low-vision
// users zoom meaningfully. WCAG 1.4.4 requires text to scale to 200%, so
// a cap below 2 fails the criterion.
const maxScaleFloor = 2.0

// ViewportProbe checks the viewport meta configuration.
// Pages that disable pinch zoom or cap the scale factor lock out
// low-vision users on touch devices; pages with a fixed pixel width
// force horizontal scrolling on small screens.
type ViewportProbe struct{}

// NewViewportProbe creates a new ViewportProbe.
func NewViewportProbe() *ViewportProbe {
	return &ViewportProbe{}
}

// ID returns the probe identifier.
func (p *ViewportProbe) ID() string {
	return ProbeViewport
}

// NeedsHandle reports that this probe reads the rendered DOM.
func (p *ViewportProbe) NeedsHandle() bool {
	return true
}

// Run locates the viewport meta tag and evaluates its directives.
func (p *ViewportProbe) Run(ctx context.Context, _ model.Target, handle engine.Handle) ([]model.Finding, error) {
	if handle == nil {
		return nil, errors.New("viewport probe requires a rendering session")
	}

	source, err := handle.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	content, found := viewportContent(doc)

	findings := make([]model.Finding, 0)
	if !found {
		findings = append(findings, model.NewFinding(
			"viewport_meta_missing",
			"No viewport meta tag",
			"The page has no <meta name=\"viewport\"> tag. Mobile browsers fall back to a desktop layout width and render text unreadably small.",
			"head",
		))
		return findings, nil
	}

	directives := parseViewportDirectives(content)
	selector := `meta[name="viewport"]`

	if v, ok := directives["user-scalable"]; ok && (v == "no" || v == "0") {
		findings = append(findings, model.NewFinding(
			"viewport_zoom_disabled",
			"Pinch zoom is disabled",
			fmt.Sprintf("The viewport declares user-scalable=%s. Low-vision users cannot zoom the page at all on touch devices.", v),
			selector,
		))
	}

	if v, ok := directives["maximum-scale"]; ok {
		if scale, err := strconv.ParseFloat(v, 64); err == nil && scale < maxScaleFloor {
			findings = append(findings, model.NewFinding(
				"viewport_scale_capped",
				"Zoom is capped below 200%",
				fmt.Sprintf("The viewport declares maximum-scale=%s. Users cannot reach the 200%% magnification that WCAG requires.", v),
				selector,
			))
		}
	}

	if v, ok := directives["width"]; ok && v != "device-width" {
		if _, err := strconv.Atoi(v); err == nil {
			findings = append(findings, model.NewFinding(
				"viewport_fixed_width",
				"Viewport has a fixed pixel width",
				fmt.Sprintf("The viewport declares width=%s instead of device-width. Small screens get a scaled-down desktop layout with horizontal scrolling.", v),
				selector,
			))
		}
	}

	return findings, nil
}

// viewportContent returns the content of the first viewport meta tag.
func viewportContent(doc *html.Node) (string, bool) {
	content := ""
	found := false
	walk(doc, func(n *html.Node) {
		if found || n.Type != html.ElementNode || n.Data != "meta" {
			return
		}
		if strings.EqualFold(getAttr(n, "name"), "viewport") {
			content = getAttr(n, "content")
			found = true
		}
	})
	return content, found
}

// parseViewportDirectives splits a viewport content value into key/value
// directives. Browsers accept both commas and semicolons as separators,
// so both are honored.
func parseViewportDirectives(content string) map[string]string {
	directives := make(map[string]string)
	for _, part := range strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		directives[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(value))
	}
	return directives
}
