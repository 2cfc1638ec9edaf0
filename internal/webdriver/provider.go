package webdriver

import (
	"context"
	"time"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// Provider creates WebDriver-backed rendering sessions for one engine.
// It implements engine.Provider.
type Provider struct {
	client *Client
}

// Compile-time check that Provider satisfies the provider contract.
var _ engine.Provider = (*Provider)(nil)

// NewProvider creates a provider for the given engine and driver endpoint.
func NewProvider(kind model.EngineKind, endpoint string, timeout time.Duration) (*Provider, error) {
	client, err := NewClient(kind, endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

// Engine returns the engine kind this provider creates sessions for.
func (p *Provider) Engine() model.EngineKind {
	return p.client.Engine()
}

// Available checks the driver's /status endpoint.
// A non-nil error means the driver is unreachable or refusing sessions;
// callers drop the engine from the run with a warning.
func (p *Provider) Available(ctx context.Context) error {
	return p.client.Status(ctx)
}

// Create starts a fresh session. The caller owns the returned handle.
func (p *Provider) Create(ctx context.Context) (engine.Handle, error) {
	return p.client.NewSession(ctx)
}
