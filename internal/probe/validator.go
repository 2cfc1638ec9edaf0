package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// ValidatorProbe submits the target URL to the Nu HTML Checker and
// converts validation errors and warnings into findings. Invalid markup
// is a frequent root cause of assistive-technology breakage even when
// individual accessibility checks pass.
//
// The probe is handle-free: the checker fetches the URL itself, so the
// raw served markup is evaluated rather than the rendered DOM.
type ValidatorProbe struct {
	// client executes the checker request.
	client *http.Client

	// endpoint is the Nu checker base URL.
	endpoint string

	// userAgent is sent with the request.
	userAgent string

	// maxBodySize caps how many response bytes are read.
	maxBodySize int64
}

// NewValidatorProbe creates a ValidatorProbe from the shared probe
// configuration.
func NewValidatorProbe(cfg *Config) (*ValidatorProbe, error) {
	if cfg.HTTPClient == nil {
		return nil, errors.New("validator probe requires an HTTP client")
	}
	if _, err := url.Parse(cfg.ValidatorEndpoint); err != nil || cfg.ValidatorEndpoint == "" {
		return nil, fmt.Errorf("invalid validator endpoint %q", cfg.ValidatorEndpoint)
	}

	return &ValidatorProbe{
		client:      cfg.HTTPClient,
		endpoint:    cfg.ValidatorEndpoint,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
	}, nil
}

// ID returns the probe identifier.
func (p *ValidatorProbe) ID() string {
	return ProbeValidator
}

// NeedsHandle reports that this probe never touches the rendering session.
func (p *ValidatorProbe) NeedsHandle() bool {
	return false
}

// nuResponse is the Nu checker JSON output shape.
type nuResponse struct {
	Messages []nuMessage `json:"messages"`
}

// nuMessage is one checker message.
type nuMessage struct {
	// Type is "error", "info", or "non-document-error".
	Type string `json:"type"`

	// SubType refines info messages; "warning" is the one that matters.
	SubType string `json:"subType"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Extract is the offending markup snippet.
	Extract string `json:"extract"`

	// LastLine locates the message in the source.
	LastLine int `json:"lastLine"`
}

// Run submits the target to the checker and converts its messages.
func (p *ValidatorProbe) Run(ctx context.Context, target model.Target, _ engine.Handle) ([]model.Finding, error) {
	query := url.Values{}
	query.Set("doc", target.String())
	query.Set("out", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validator request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close on read path

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validator returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read validator response: %w", err)
	}

	var result nuResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode validator response: %w", err)
	}

	return p.convertMessages(result.Messages)
}

// convertMessages turns checker messages into findings.
// A non-document-error means the checker could not evaluate the page at
// all, which fails the probe rather than producing findings.
func (p *ValidatorProbe) convertMessages(messages []nuMessage) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)

	for _, msg := range messages {
		switch {
		case msg.Type == "non-document-error":
			return nil, fmt.Errorf("validator could not check the document: %s", msg.Message)
		case msg.Type == "error":
			findings = append(findings, model.NewFinding(
				"html_invalid",
				msg.Message,
				msg.Extract,
				lineSelector(msg.LastLine),
			))
		case msg.Type == "info" && msg.SubType == "warning":
			findings = append(findings, model.NewFinding(
				"html_warning",
				msg.Message,
				msg.Extract,
				lineSelector(msg.LastLine),
			))
		}
	}

	return findings, nil
}

// lineSelector renders a source line locator.
func lineSelector(line int) string {
	if line <= 0 {
		return ""
	}
	return fmt.Sprintf("line %d", line)
}
