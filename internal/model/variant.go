package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EnvironmentVariant errors.
var (
	// ErrUnknownEngine is returned for engine names outside the supported set.
	ErrUnknownEngine = errors.New("unknown rendering engine")
	// ErrInvalidViewport is returned when a viewport is neither a preset name
	// nor a WxH dimension pair.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// EngineKind identifies a rendering engine driven over WebDriver.
type EngineKind string

const (
	// EngineChrome is Chrome/Chromium via chromedriver.
	EngineChrome EngineKind = "chrome"
	// EngineFirefox is Firefox via geckodriver.
	EngineFirefox EngineKind = "firefox"
	// EngineEdge is Microsoft Edge via msedgedriver.
	EngineEdge EngineKind = "edge"
	// EngineSafari is Safari via safaridriver.
	EngineSafari EngineKind = "safari"
)

// ParseEngineKind converts a case-insensitive engine name to an EngineKind.
func ParseEngineKind(name string) (EngineKind, error) {
	switch EngineKind(strings.ToLower(strings.TrimSpace(name))) {
	case EngineChrome:
		return EngineChrome, nil
	case EngineFirefox:
		return EngineFirefox, nil
	case EngineEdge:
		return EngineEdge, nil
	case EngineSafari:
		return EngineSafari, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// String returns the engine name.
func (k EngineKind) String() string {
	return string(k)
}

// Viewport presets shared with the original test plans. Arbitrary WxH
// dimensions are also accepted by ParseViewport.
const (
	// ViewportMobile approximates a small phone screen.
	ViewportMobile = "mobile"
	// ViewportTablet approximates a tablet in portrait orientation.
	ViewportTablet = "tablet"
	// ViewportDesktop approximates a common laptop screen.
	ViewportDesktop = "desktop"
)

// viewportPresets maps preset names to their dimensions.
var viewportPresets = map[string][2]int{
	ViewportMobile:  {375, 667},
	ViewportTablet:  {768, 1024},
	ViewportDesktop: {1366, 768},
}

// ParseViewport resolves a preset name ("mobile", "tablet", "desktop") or a
// "WxH" dimension pair (e.g. "1920x1080") to pixel dimensions.
func ParseViewport(s string) (width, height int, err error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if dims, ok := viewportPresets[normalized]; ok {
		return dims[0], dims[1], nil
	}

	parts := strings.SplitN(normalized, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q (expected a preset name or WxH)", ErrInvalidViewport, s)
	}
	width, werr := strconv.Atoi(parts[0])
	height, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: %q (expected a preset name or WxH)", ErrInvalidViewport, s)
	}
	return width, height, nil
}

// PresetName returns the preset name for the given dimensions,
// or the empty string if the dimensions match no preset.
func PresetName(width, height int) string {
	for name, dims := range viewportPresets {
		if dims[0] == width && dims[1] == height {
			return name
		}
	}
	return ""
}

// EnvironmentVariant is one rendering configuration a target is evaluated
// under: an engine plus a viewport size. It is an immutable value type;
// equality is structural.
type EnvironmentVariant struct {
	Engine EngineKind `json:"engine"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

// NewEnvironmentVariant creates a variant after validating the engine name
// and dimensions.
func NewEnvironmentVariant(engine string, width, height int) (EnvironmentVariant, error) {
	kind, err := ParseEngineKind(engine)
	if err != nil {
		return EnvironmentVariant{}, err
	}
	if width <= 0 || height <= 0 {
		return EnvironmentVariant{}, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	return EnvironmentVariant{Engine: kind, Width: width, Height: height}, nil
}

// Key returns the stable identifier used as the variant dimension key in
// MatrixResult, reports, and the database: "<engine>-<W>x<H>".
func (v EnvironmentVariant) Key() string {
	return fmt.Sprintf("%s-%dx%d", v.Engine, v.Width, v.Height)
}

// Label returns a human-oriented description, naming the viewport preset
// when the dimensions match one: "chrome mobile (375x667)".
func (v EnvironmentVariant) Label() string {
	if name := PresetName(v.Width, v.Height); name != "" {
		return fmt.Sprintf("%s %s (%dx%d)", v.Engine, name, v.Width, v.Height)
	}
	return fmt.Sprintf("%s %dx%d", v.Engine, v.Width, v.Height)
}

// String returns the variant key.
func (v EnvironmentVariant) String() string {
	return v.Key()
}

// BuildVariants expands engine names and viewport specs into the full
// engine × viewport cross product, preserving input order. The result is the
// variant axis of the test matrix.
func BuildVariants(engines, viewports []string) ([]EnvironmentVariant, error) {
	variants := make([]EnvironmentVariant, 0, len(engines)*len(viewports))
	for _, engine := range engines {
		kind, err := ParseEngineKind(engine)
		if err != nil {
			return nil, err
		}
		for _, viewport := range viewports {
			w, h, err := ParseViewport(viewport)
			if err != nil {
				return nil, err
			}
			variants = append(variants, EnvironmentVariant{Engine: kind, Width: w, Height: h})
		}
	}
	return variants, nil
}
