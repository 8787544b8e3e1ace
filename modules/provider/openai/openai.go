// Package openai implements the provider.openai module for any server that
// speaks the OpenAI chat completions API, selected by base_url: OpenAI,
// OpenRouter, or a local model server.
package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/security"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Interface guards.
var (
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)

// Provider is the provider.openai module.
type Provider struct {
	config Config
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It publishes the module as the
// provider service, replacing any provider provisioned before it.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger

	p.apiKey = p.config.resolveAPIKey(os.LookupEnv)
	if p.apiKey != "" {
		if redactor, ok := core.Lookup[*security.Redactor](ctx, security.RedactorServiceName); ok {
			redactor.AddLiteral(p.apiKey)
		}
	}

	// ResponseHeaderTimeout rather than Client.Timeout, which would cut
	// long streams short.
	p.client = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: p.config.Timeout,
		},
	}

	if prev, ok := core.Lookup[provider.Provider](ctx, provider.ServiceName); ok {
		p.logger.Warn("replacing previously provisioned provider", "previous", prev.ModelName())
	}
	ctx.RegisterService(provider.ServiceName, provider.Provider(p))
	p.logger.Info("openai provider provisioned",
		"base_url", p.config.BaseURL,
		"model", p.config.Model,
		"context_window", p.config.ContextWindow,
		"authenticated", p.apiKey != "",
	)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int {
	return p.config.ContextWindow
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// HealthCheck implements provider.HealthChecker by listing the models.
func (p *Provider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: health check: %w", provider.ErrProviderDown, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: health check returned HTTP %d", provider.ErrProviderDown, resp.StatusCode)
	}
	return nil
}
