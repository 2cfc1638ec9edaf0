package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

// Spider discovers additional scan targets by following same-host links
// from a seed target. It manages a queue of URLs to visit and respects
// depth and page limits.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// client is the HTTP client used for discovery fetches.
	client *http.Client

	// logger receives per-URL discovery progress at debug level.
	logger *slog.Logger

	// maxDepth limits how deep to crawl from the seed target.
	// 0 means only the seed page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of targets discovered per seed.
	// This prevents runaway discovery on large sites.
	maxPages int

	// delay is the time to wait between requests.
	// This is a politeness setting to avoid overwhelming servers.
	delay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// visited tracks normalized URLs already visited. The set is shared
	// across Crawl calls so overlapping seeds never produce duplicates.
	visited map[string]bool

	// mutex protects concurrent access to visited.
	mutex sync.Mutex

	// pageCount tracks pages visited across all seeds.
	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of targets discovered per seed.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSpiderLogger sets a custom logger for discovery progress.
// If not set, slog.Default() is used.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeout and proxy policy belong to the caller
//  2. Consistent with the probe clients, which are injected the same way
//  3. Tests substitute httptest clients without extra hooks
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		logger:      slog.Default(),
		maxDepth:    1,
		maxPages:    10,
		delay:       500 * time.Millisecond,
		userAgent:   "a11yscan/1.0 (+https://github.com/nao1215/a11yscan)",
		maxBodySize: 10 * 1024 * 1024, // 10MB
		visited:     make(map[string]bool),
		pageCount:   0,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl discovers targets reachable from the seed, breadth first, and
// returns them in visit order with the seed first. Only same-host HTML
// documents become targets; linked assets are fetched once to classify
// and then dropped. The seed itself always stays in the result, even
// when unreachable: the caller asked to scan it, and the scan records
// the failure as cell evidence.
//
// Design decision: We return a slice of targets rather than streaming
// them because:
//  1. Discovery must finish before matrix enumeration starts
//  2. Target lists are small relative to total memory
//  3. Deterministic ordering falls out of the BFS naturally
func (s *Spider) Crawl(ctx context.Context, seed model.Target) ([]model.Target, error) {
	targets := make([]model.Target, 0)
	queue := []queueItem{{target: seed, depth: 0}}
	seedPages := 0

	for len(queue) > 0 && seedPages < s.maxPages {
		// Check context
		select {
		case <-ctx.Done():
			return targets, ctx.Err()
		default:
		}

		// Pop from queue
		item := queue[0]
		queue = queue[1:]

		// Skip if already visited. No request was made, so no
		// politeness delay is needed either.
		if s.isVisited(item.target) {
			continue
		}
		s.markVisited(item.target)

		p, err := s.fetchPage(ctx, item.target)
		switch {
		case err != nil:
			s.logger.Debug("discovery fetch failed",
				"url", item.target.String(), "error", err)
			if item.depth == 0 {
				targets = append(targets, item.target)
				seedPages++
				s.pageCount++
			}

		case item.depth > 0 && (!p.html || p.status >= http.StatusBadRequest):
			// Discovered links that are not HTML documents or that
			// resolve to error pages never become scan targets.
			s.logger.Debug("discovery skipped document",
				"url", item.target.String(), "status", p.status)

		default:
			targets = append(targets, item.target)
			seedPages++
			s.pageCount++
			s.logger.Debug("discovered target",
				"url", item.target.String(), "title", p.title, "links", len(p.links))

			if item.depth < s.maxDepth {
				for _, link := range p.links {
					if !s.isVisited(link) && sameHost(seed, link) {
						queue = append(queue, queueItem{target: link, depth: item.depth + 1})
					}
				}
			}
		}

		// Politeness delay between requests
		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return targets, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return targets, nil
}

// Expand runs Crawl for every seed and concatenates the results, so the
// final target list keeps seed order first and discovery order second.
// The shared visited set guarantees a target discovered from one seed is
// never repeated for a later one.
func (s *Spider) Expand(ctx context.Context, seeds []model.Target) ([]model.Target, error) {
	expanded := make([]model.Target, 0, len(seeds))
	for _, seed := range seeds {
		discovered, err := s.Crawl(ctx, seed)
		expanded = append(expanded, discovered...)
		if err != nil {
			return expanded, err
		}
	}
	return expanded, nil
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	target model.Target
	depth  int
}

// page describes one document fetched during discovery.
type page struct {
	// title is the page title, when the document is HTML.
	title string

	// status is the HTTP status code of the response.
	status int

	// html reports whether the response carried an HTML content type.
	html bool

	// links holds the same-host links the document contains.
	links []model.Target
}

// fetchPage fetches a single document and extracts its title and
// same-host links.
func (s *Spider) fetchPage(ctx context.Context, target model.Target) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	// Read body with limit
	bodyReader := io.LimitReader(resp.Body, s.maxBodySize)
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}

	p := &page{
		status: resp.StatusCode,
		html:   strings.Contains(resp.Header.Get("Content-Type"), "text/html"),
	}
	if !p.html {
		return p, nil
	}

	parser, err := NewParser(target.String())
	if err != nil {
		return p, nil
	}
	result, err := parser.Parse(strings.NewReader(string(body)))
	if err != nil {
		return p, nil
	}

	p.title = result.Title
	for _, link := range result.InternalLinks {
		t, err := model.NewTarget(link)
		if err != nil {
			continue
		}
		p.links = append(p.links, t)
	}

	return p, nil
}

// isVisited checks if a target has been visited.
func (s *Spider) isVisited(target model.Target) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[target.String()]
}

// markVisited marks a target as visited.
func (s *Spider) markVisited(target model.Target) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[target.String()] = true
}

// sameHost reports whether two targets share a host.
//
// Design decision: Only same-host links are followed because:
//  1. The user asked to scan this site, not everything it links to
//  2. Keeps the discovery budget on the requested target
//  3. Cross-host pages belong in the seed list if they matter
func sameHost(a, b model.Target) bool {
	return strings.EqualFold(a.URL().Host, b.URL().Host)
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
}

// Stats returns current discovery statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesVisited: s.pageCount,
		URLsSeen:     len(s.visited),
	}
}

// SpiderStats contains discovery statistics.
type SpiderStats struct {
	// PagesVisited is the number of pages kept as targets.
	PagesVisited int

	// URLsSeen is the number of unique URLs encountered.
	URLsSeen int
}
