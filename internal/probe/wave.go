package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// WaveProbe submits the target URL to the WAVE WebAIM REST API and
// converts the reported errors, contrast errors, and alerts into
// findings. It is handle-free: WAVE renders the page on its own
// infrastructure, so this probe runs even when no local rendering
// session could be created.
//
// Each API call consumes a WAVE credit, which is why the registry only
// resolves this probe when an API key is configured.
type WaveProbe struct {
	// client executes the API request.
	client *http.Client

	// apiKey authenticates with the WAVE API.
	apiKey string

	// endpoint is the WAVE API request URL.
	endpoint string

	// userAgent is sent with the request.
	userAgent string

	// maxBodySize caps how many response bytes are read.
	maxBodySize int64
}

// NewWaveProbe creates a WaveProbe from the shared probe configuration.
func NewWaveProbe(cfg *Config) (*WaveProbe, error) {
	if cfg.HTTPClient == nil {
		return nil, errors.New("wave probe requires an HTTP client")
	}
	if cfg.WaveAPIKey == "" {
		return nil, errors.New("wave probe requires an API key")
	}
	if _, err := url.Parse(cfg.WaveEndpoint); err != nil || cfg.WaveEndpoint == "" {
		return nil, fmt.Errorf("invalid WAVE endpoint %q", cfg.WaveEndpoint)
	}

	return &WaveProbe{
		client:      cfg.HTTPClient,
		apiKey:      cfg.WaveAPIKey,
		endpoint:    cfg.WaveEndpoint,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
	}, nil
}

// ID returns the probe identifier.
func (p *WaveProbe) ID() string {
	return ProbeWave
}

// NeedsHandle reports that this probe never touches the rendering session.
func (p *WaveProbe) NeedsHandle() bool {
	return false
}

// waveResponse is the WAVE API response shape, reduced to the fields the
// probe consumes. reporttype=2 includes per-item detail.
type waveResponse struct {
	Status struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	} `json:"status"`
	Categories map[string]waveCategory `json:"categories"`
}

// waveCategory is one WAVE result category (error, contrast, alert, ...).
type waveCategory struct {
	Count int                 `json:"count"`
	Items map[string]waveItem `json:"items"`
}

// waveItem is one issue type within a category.
type waveItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// waveCategoryCodes maps WAVE categories to finding codes. Categories not
// listed here (feature, structure, aria) are informational and skipped.
var waveCategoryCodes = map[string]string{
	"error":    "wave_error",
	"contrast": "wave_contrast",
	"alert":    "wave_alert",
}

// Run submits the target to the WAVE API and converts the result.
func (p *WaveProbe) Run(ctx context.Context, target model.Target, _ engine.Handle) ([]model.Finding, error) {
	query := url.Values{}
	query.Set("key", p.apiKey)
	query.Set("url", target.String())
	query.Set("reporttype", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build WAVE request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("WAVE request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close on read path

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("WAVE API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read WAVE response: %w", err)
	}

	var result waveResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode WAVE response: %w", err)
	}

	if !result.Status.Success {
		if result.Status.Error != "" {
			return nil, fmt.Errorf("WAVE API rejected the request: %s", result.Status.Error)
		}
		return nil, errors.New("WAVE API rejected the request")
	}

	return p.convertCategories(result.Categories), nil
}

// convertCategories turns WAVE categories into findings, one finding per
// issue type with the instance count in the detail. Items are emitted in
// sorted order so repeated runs produce identical reports.
func (p *WaveProbe) convertCategories(categories map[string]waveCategory) []model.Finding {
	findings := make([]model.Finding, 0)

	for _, category := range []string{"error", "contrast", "alert"} {
		cat, ok := categories[category]
		if !ok || len(cat.Items) == 0 {
			continue
		}

		ids := make([]string, 0, len(cat.Items))
		for id := range cat.Items {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		code := waveCategoryCodes[category]
		for _, id := range ids {
			item := cat.Items[id]
			findings = append(findings, model.NewFinding(
				code,
				item.Description,
				fmt.Sprintf("WAVE reported %d instance(s) of %s.", item.Count, item.ID),
				"",
			))
		}
	}

	return findings
}
