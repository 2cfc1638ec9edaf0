// Package crawler provides same-host target discovery for scans.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which expands
// seed targets into the pages linked from them. It uses a work queue to
// manage URLs to visit and respects depth limits and politeness settings.
//
// Design decision: We implement our own crawler rather than using a
// third-party library because:
//  1. Discovery only needs same-host BFS with small budgets
//  2. We need tight control over request timing to avoid overwhelming sites
//  3. Results must come back as normalized scan targets in a stable order
//  4. Reduces external dependencies and potential security issues
//
// # Components
//
//   - Spider: The crawler that coordinates the discovery process
//   - Parser: HTML parser that extracts the title and links
//
// # Politeness
//
// The crawler is designed to be polite:
//   - Delays between requests (configurable)
//   - One request at a time
//   - Respects max depth and max page settings
//   - Memory limits prevent reading unbounded pages
//
// # Usage
//
//	spider := crawler.NewSpider(httpClient, crawler.WithMaxDepth(2))
//	targets, err := spider.Expand(ctx, seeds)
package crawler
