package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/a11yscan/internal/model"
)

// nuCheckerBody is a reduced Nu HTML Checker response with one error,
// one warning, and one plain informational message.
const nuCheckerBody = `{
	"messages": [
		{
			"type": "error",
			"message": "Element div not allowed as child of element span.",
			"extract": "<span><div>",
			"lastLine": 12
		},
		{
			"type": "info",
			"subType": "warning",
			"message": "Section lacks heading.",
			"extract": "<section>",
			"lastLine": 30
		},
		{
			"type": "info",
			"message": "Using the schema for HTML.",
			"lastLine": 0
		}
	]
}`

// TestNewValidatorProbe tests construction requirements.
func TestNewValidatorProbe(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		probe, err := NewValidatorProbe(testProbeConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if probe.ID() != ProbeValidator {
			t.Errorf("expected ID %q, got %q", ProbeValidator, probe.ID())
		}
		if probe.NeedsHandle() {
			t.Error("expected validator probe to be handle-free")
		}
	})

	t.Run("missing HTTP client", func(t *testing.T) {
		t.Parallel()

		cfg := testProbeConfig()
		cfg.HTTPClient = nil
		if _, err := NewValidatorProbe(cfg); err == nil {
			t.Error("expected error for missing HTTP client")
		}
	})

	t.Run("empty endpoint", func(t *testing.T) {
		t.Parallel()

		cfg := testProbeConfig()
		cfg.ValidatorEndpoint = ""
		if _, err := NewValidatorProbe(cfg); err == nil {
			t.Error("expected error for empty endpoint")
		}
	})
}

// TestValidatorProbeRun tests the checker round trip and message conversion.
func TestValidatorProbeRun(t *testing.T) {
	t.Parallel()

	t.Run("converts messages into findings", func(t *testing.T) {
		t.Parallel()

		var gotDoc, gotOut string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotDoc = r.URL.Query().Get("doc")
			gotOut = r.URL.Query().Get("out")
			w.Header().Set("Content-Type", "application/json")
			if _, err := w.Write([]byte(nuCheckerBody)); err != nil {
				t.Errorf("failed to write response: %v", err)
			}
		}))
		defer server.Close()

		cfg := testProbeConfig()
		cfg.ValidatorEndpoint = server.URL
		probe, err := NewValidatorProbe(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		findings, err := probe.Run(context.Background(), model.MustNewTarget("https://example.com/"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotDoc != "https://example.com/" {
			t.Errorf("expected target URL in doc parameter, got %q", gotDoc)
		}
		if gotOut != "json" {
			t.Errorf("expected out=json, got %q", gotOut)
		}

		got := codesOf(findings)
		want := map[string]int{
			"html_invalid": 1,
			"html_warning": 1,
		}
		if len(findings) != 2 {
			t.Errorf("expected 2 findings (plain info skipped), got %d", len(findings))
		}
		for code, count := range want {
			if got[code] != count {
				t.Errorf("expected %d %s findings, got %d", count, code, got[code])
			}
		}

		if findings[0].Summary != "Element div not allowed as child of element span." {
			t.Errorf("unexpected summary: %q", findings[0].Summary)
		}
		if findings[0].Detail != "<span><div>" {
			t.Errorf("expected source extract in detail, got %q", findings[0].Detail)
		}
		if findings[0].Selector != "line 12" {
			t.Errorf("expected line locator, got %q", findings[0].Selector)
		}
		if findings[0].Severity != model.SeveritySerious {
			t.Errorf("expected serious severity for html_invalid, got %s", findings[0].SeverityText)
		}
		if findings[1].Severity != model.SeverityMinor {
			t.Errorf("expected minor severity for html_warning, got %s", findings[1].SeverityText)
		}
	})

	t.Run("valid page yields no findings", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if _, err := w.Write([]byte(`{"messages": []}`)); err != nil {
				t.Errorf("failed to write response: %v", err)
			}
		}))
		defer server.Close()

		cfg := testProbeConfig()
		cfg.ValidatorEndpoint = server.URL
		probe, err := NewValidatorProbe(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		findings, err := probe.Run(context.Background(), model.MustNewTarget("https://example.com/"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %d", len(findings))
		}
	})

	t.Run("non-document-error fails the probe", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			body := `{"messages": [{"type": "non-document-error", "message": "Connection refused"}]}`
			if _, err := w.Write([]byte(body)); err != nil {
				t.Errorf("failed to write response: %v", err)
			}
		}))
		defer server.Close()

		cfg := testProbeConfig()
		cfg.ValidatorEndpoint = server.URL
		probe, err := NewValidatorProbe(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = probe.Run(context.Background(), model.MustNewTarget("https://unreachable.example/"), nil)
		if err == nil {
			t.Fatal("expected error when the checker cannot fetch the document")
		}
		if !strings.Contains(err.Error(), "Connection refused") {
			t.Errorf("expected checker message in error, got %v", err)
		}
	})

	t.Run("HTTP error fails the probe", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "too busy", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		cfg := testProbeConfig()
		cfg.ValidatorEndpoint = server.URL
		probe, err := NewValidatorProbe(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = probe.Run(context.Background(), model.MustNewTarget("https://example.com/"), nil)
		if err == nil {
			t.Fatal("expected error for HTTP 503")
		}
	})
}
