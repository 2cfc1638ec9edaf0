// Package webdriver provides rendering sessions over the W3C WebDriver
// protocol.
//
// This package speaks plain HTTP to a locally running driver binary
// (chromedriver, geckodriver, msedgedriver, safaridriver) and exposes the
// sessions it creates as engine.Handle values. It handles session
// lifecycle, viewport sizing, and W3C protocol error decoding.
//
// Design decision: We implement the small protocol subset we need instead
// of pulling in a browser-automation framework because:
// 1. The matrix only navigates, resizes, and reads page source; element
//    interaction APIs would be dead weight
// 2. The W3C wire format is stable JSON over HTTP and fits in one file
// 3. Tests can fake a driver with httptest instead of a real browser
//
// The package is designed to be used with dependency injection - create a
// Provider per engine endpoint and register it with the engine.Manager
// rather than using global state.
package webdriver
