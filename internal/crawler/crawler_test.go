package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

// discardLogger returns a logger that swallows all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// htmlHandler serves the given body with an HTML content type.
func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body)) //nolint:errcheck
	}
}

// TestParser tests HTML title and link extraction.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		html := `<html><head><title>  Welcome Page  </title></head><body></body></html>`
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Title != "Welcome Page" {
			t.Errorf("expected title 'Welcome Page', got %q", result.Title)
		}
	})

	t.Run("resolves and classifies links", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/docs/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		html := `<html><body>
			<a href="/about">About</a>
			<a href="guide">Guide</a>
			<a href="https://example.com/contact">Contact</a>
			<a href="https://other.example.net/page">Elsewhere</a>
		</body></html>`
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Links) != 4 {
			t.Fatalf("expected 4 links, got %d: %v", len(result.Links), result.Links)
		}
		if len(result.InternalLinks) != 3 {
			t.Errorf("expected 3 internal links, got %d: %v", len(result.InternalLinks), result.InternalLinks)
		}
		if len(result.ExternalLinks) != 1 {
			t.Errorf("expected 1 external link, got %d: %v", len(result.ExternalLinks), result.ExternalLinks)
		}

		if result.InternalLinks[1] != "https://example.com/docs/guide" {
			t.Errorf("relative link resolved to %q", result.InternalLinks[1])
		}
		if result.ExternalLinks[0] != "https://other.example.net/page" {
			t.Errorf("external link = %q", result.ExternalLinks[0])
		}
	})

	t.Run("skips pseudo links", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		html := `<html><body>
			<a href="javascript:void(0)">JS</a>
			<a href="mailto:team@example.com">Mail</a>
			<a href="tel:+15550100">Call</a>
			<a href="data:text/plain,hi">Data</a>
			<a href="#">Top</a>
			<a href="/real">Real</a>
		</body></html>`
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Links) != 1 {
			t.Fatalf("expected 1 link, got %d: %v", len(result.Links), result.Links)
		}
		if result.Links[0] != "https://example.com/real" {
			t.Errorf("unexpected link %q", result.Links[0])
		}
	})

	t.Run("tolerates malformed HTML", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		html := `<html><body><a href="/one">One<div><a href="/two">Two</body>`
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.InternalLinks) != 2 {
			t.Errorf("expected 2 internal links, got %d", len(result.InternalLinks))
		}
	})

	t.Run("returns error for invalid base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser("https://example.com/\x00"); err == nil {
			t.Error("expected error for invalid base URL")
		}
	})
}

// TestSpider tests breadth-first target discovery.
func TestSpider(t *testing.T) {
	t.Parallel()

	t.Run("depth zero keeps only the seed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(htmlHandler(
			`<html><head><title>Home</title></head><body><a href="/about">About</a></body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(0), WithDelay(0), WithSpiderLogger(discardLogger()))
		seed := model.MustNewTarget(server.URL)

		targets, err := spider.Crawl(context.Background(), seed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(targets) != 1 {
			t.Fatalf("expected 1 target, got %d", len(targets))
		}
		if targets[0] != seed {
			t.Errorf("expected seed %s, got %s", seed, targets[0])
		}
	})

	t.Run("follows links within depth limit in visit order", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(`<html><body><a href="/a">A</a><a href="/b">B</a></body></html>`))
		mux.HandleFunc("/a", htmlHandler(`<html><body><a href="/c">C</a></body></html>`))
		mux.HandleFunc("/b", htmlHandler(`<html><body>B</body></html>`))
		mux.HandleFunc("/c", htmlHandler(`<html><body>C</body></html>`))

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{server.URL + "/", server.URL + "/a", server.URL + "/b"}
		if len(targets) != len(want) {
			t.Fatalf("expected %d targets, got %d: %v", len(want), len(targets), targets)
		}
		for i, target := range targets {
			if target.String() != want[i] {
				t.Errorf("target[%d] = %s, expected %s", i, target, want[i])
			}
		}
	})

	t.Run("respects max pages limit", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(
			`<html><body><a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a><a href="/p4">4</a></body></html>`))
		for _, path := range []string{"/p1", "/p2", "/p3", "/p4"} {
			mux.HandleFunc(path, htmlHandler(`<html><body>Page</body></html>`))
		}

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithMaxPages(3), WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(targets) != 3 {
			t.Errorf("expected exactly 3 targets, got %d: %v", len(targets), targets)
		}
	})

	t.Run("skips non-HTML documents and broken links", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(
			`<html><body><a href="/feed.json">Feed</a><a href="/missing">Gone</a><a href="/ok">OK</a></body></html>`))
		mux.HandleFunc("/feed.json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[]}`)) //nolint:errcheck
		})
		mux.HandleFunc("/ok", htmlHandler(`<html><body>OK</body></html>`))

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{server.URL + "/", server.URL + "/ok"}
		if len(targets) != len(want) {
			t.Fatalf("expected %d targets, got %d: %v", len(want), len(targets), targets)
		}
		for i, target := range targets {
			if target.String() != want[i] {
				t.Errorf("target[%d] = %s, expected %s", i, target, want[i])
			}
		}
	})

	t.Run("keeps an unreachable seed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(htmlHandler(`<html></html>`))
		client := server.Client()
		seed := model.MustNewTarget(server.URL)
		server.Close()

		spider := NewSpider(client, WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), seed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(targets) != 1 || targets[0] != seed {
			t.Errorf("expected only the seed, got %v", targets)
		}
	})

	t.Run("never leaves the seed host", func(t *testing.T) {
		t.Parallel()

		externalHits := 0
		external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			externalHits++
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body>External</body></html>`)) //nolint:errcheck
		}))
		defer external.Close()

		server := httptest.NewServer(htmlHandler(
			`<html><body><a href="` + external.URL + `/page">Away</a><a href="/local">Local</a></body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(2), WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if externalHits != 0 {
			t.Errorf("external server was fetched %d times", externalHits)
		}
		for _, target := range targets {
			if !strings.HasPrefix(target.String(), server.URL) {
				t.Errorf("target %s left the seed host", target)
			}
		}
	})

	t.Run("deduplicates alternate spellings of a URL", func(t *testing.T) {
		t.Parallel()

		aboutVisits := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/", htmlHandler(
			`<html><body><a href="/about">About</a><a href="/about#team">Team</a></body></html>`))
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			aboutVisits++
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body>About</body></html>`)) //nolint:errcheck
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithDelay(0), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if aboutVisits != 1 {
			t.Errorf("expected 1 visit to /about, got %d", aboutVisits)
		}
		if len(targets) != 2 {
			t.Errorf("expected 2 targets, got %d: %v", len(targets), targets)
		}
	})

	t.Run("sends the configured user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithDelay(0), WithSpiderUserAgent("custom-spider/2.0"), WithSpiderLogger(discardLogger()))

		if _, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotUA != "custom-spider/2.0" {
			t.Errorf("user agent = %q", gotUA)
		}
	})

	t.Run("truncates oversized documents", func(t *testing.T) {
		t.Parallel()

		filler := strings.Repeat("x", 200)
		server := httptest.NewServer(htmlHandler(
			`<html><body>` + filler + `<a href="/late">Late</a></body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithDelay(0), WithSpiderMaxBodySize(100), WithSpiderLogger(discardLogger()))

		targets, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(targets) != 1 {
			t.Errorf("expected the truncated link to be dropped, got %v", targets)
		}
	})

	t.Run("returns early on canceled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(htmlHandler(`<html></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(), WithDelay(0), WithSpiderLogger(discardLogger()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		targets, err := spider.Crawl(ctx, model.MustNewTarget(server.URL))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(targets) != 0 {
			t.Errorf("expected no targets, got %v", targets)
		}
	})
}

// TestSpiderExpand tests multi-seed expansion.
func TestSpiderExpand(t *testing.T) {
	t.Parallel()

	t.Run("keeps seed order then discovery order", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/one", htmlHandler(`<html><body><a href="/shared">Shared</a></body></html>`))
		mux.HandleFunc("/two", htmlHandler(`<html><body><a href="/shared">Shared</a><a href="/extra">Extra</a></body></html>`))
		mux.HandleFunc("/shared", htmlHandler(`<html><body>Shared</body></html>`))
		mux.HandleFunc("/extra", htmlHandler(`<html><body>Extra</body></html>`))

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(1), WithDelay(0), WithSpiderLogger(discardLogger()))

		seeds := []model.Target{
			model.MustNewTarget(server.URL + "/one"),
			model.MustNewTarget(server.URL + "/two"),
		}
		expanded, err := spider.Expand(context.Background(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			server.URL + "/one",
			server.URL + "/shared",
			server.URL + "/two",
			server.URL + "/extra",
		}
		if len(expanded) != len(want) {
			t.Fatalf("expected %d targets, got %d: %v", len(want), len(expanded), expanded)
		}
		for i, target := range expanded {
			if target.String() != want[i] {
				t.Errorf("expanded[%d] = %s, expected %s", i, target, want[i])
			}
		}
	})

	t.Run("ignores repeated seeds", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(htmlHandler(`<html><body>Home</body></html>`))
		defer server.Close()

		spider := NewSpider(server.Client(), WithDelay(0), WithSpiderLogger(discardLogger()))

		seed := model.MustNewTarget(server.URL)
		expanded, err := spider.Expand(context.Background(), []model.Target{seed, seed})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(expanded) != 1 {
			t.Errorf("expected 1 target, got %d: %v", len(expanded), expanded)
		}
	})
}

// TestSpiderOptions tests spider configuration options.
func TestSpiderOptions(t *testing.T) {
	t.Parallel()

	t.Run("WithMaxDepth sets depth", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(&http.Client{}, WithMaxDepth(3))
		if spider.maxDepth != 3 {
			t.Errorf("expected maxDepth 3, got %d", spider.maxDepth)
		}
	})

	t.Run("WithMaxPages sets limit", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(&http.Client{}, WithMaxPages(50))
		if spider.maxPages != 50 {
			t.Errorf("expected maxPages 50, got %d", spider.maxPages)
		}
	})

	t.Run("WithDelay sets delay", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(&http.Client{}, WithDelay(2*time.Second))
		if spider.delay != 2*time.Second {
			t.Errorf("expected delay 2s, got %v", spider.delay)
		}
	})

	t.Run("WithSpiderUserAgent sets user agent", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(&http.Client{}, WithSpiderUserAgent("agent/1.0"))
		if spider.userAgent != "agent/1.0" {
			t.Errorf("expected custom user agent, got %q", spider.userAgent)
		}
	})

	t.Run("WithSpiderMaxBodySize sets max body size", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(&http.Client{}, WithSpiderMaxBodySize(1024))
		if spider.maxBodySize != 1024 {
			t.Errorf("expected maxBodySize 1024, got %d", spider.maxBodySize)
		}
	})

	t.Run("WithSpiderLogger sets logger", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		spider := NewSpider(&http.Client{}, WithSpiderLogger(logger))
		if spider.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestSpiderReset tests state clearing between uses.
func TestSpiderReset(t *testing.T) {
	t.Parallel()

	visits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		visits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Home</body></html>`)) //nolint:errcheck
	}))
	defer server.Close()

	spider := NewSpider(server.Client(), WithDelay(0), WithSpiderLogger(discardLogger()))
	seed := model.MustNewTarget(server.URL)

	if _, err := spider.Crawl(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := spider.Crawl(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visits != 1 {
		t.Fatalf("expected the second crawl to skip a visited seed, got %d visits", visits)
	}

	spider.Reset()

	if _, err := spider.Crawl(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visits != 2 {
		t.Errorf("expected a fresh visit after Reset, got %d visits", visits)
	}

	stats := spider.Stats()
	if stats.PagesVisited != 1 {
		t.Errorf("expected PagesVisited 1 after Reset, got %d", stats.PagesVisited)
	}
}

// TestSpiderStats tests discovery statistics.
func TestSpiderStats(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", htmlHandler(`<html><body><a href="/a">A</a><a href="/b">B</a></body></html>`))
	mux.HandleFunc("/a", htmlHandler(`<html><body>A</body></html>`))
	mux.HandleFunc("/b", htmlHandler(`<html><body>B</body></html>`))

	server := httptest.NewServer(mux)
	defer server.Close()

	spider := NewSpider(server.Client(),
		WithMaxDepth(1), WithDelay(0), WithSpiderLogger(discardLogger()))

	if _, err := spider.Crawl(context.Background(), model.MustNewTarget(server.URL)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := spider.Stats()
	if stats.PagesVisited != 3 {
		t.Errorf("expected 3 pages visited, got %d", stats.PagesVisited)
	}
	if stats.URLsSeen != 3 {
		t.Errorf("expected 3 unique URLs, got %d", stats.URLsSeen)
	}
}

// TestSameHost tests the host comparison used to bound discovery.
func TestSameHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"same host", "https://example.com/", "https://example.com/about", true},
		{"case insensitive", "https://EXAMPLE.com/", "https://example.COM/x", true},
		{"different host", "https://example.com/", "https://other.example.net/", false},
		{"different port", "http://example.com:8080/", "http://example.com:9090/", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := model.MustNewTarget(tt.a)
			b := model.MustNewTarget(tt.b)
			if got := sameHost(a, b); got != tt.want {
				t.Errorf("sameHost(%s, %s) = %v, expected %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
