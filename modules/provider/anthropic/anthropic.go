// Package anthropic implements the provider.anthropic module, which
// generates manuscript text through the Anthropic Messages API.
package anthropic

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"gopkg.in/yaml.v3"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/security"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module            = (*Anthropic)(nil)
	_ core.Configurable      = (*Anthropic)(nil)
	_ core.Provisioner       = (*Anthropic)(nil)
	_ core.Validator         = (*Anthropic)(nil)
	_ provider.Provider      = (*Anthropic)(nil)
	_ provider.HealthChecker = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module.
type Anthropic struct {
	config        Config
	client        *sdkanthropic.Client
	logger        *slog.Logger
	contextWindow int
	keyFound      bool
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the SDK client and
// publishes the module as the provider service.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.logger = ctx.Logger

	apiKey := a.config.resolveAPIKey(os.LookupEnv)
	a.keyFound = apiKey != ""
	if a.keyFound {
		if redactor, ok := core.Lookup[*security.Redactor](ctx, security.RedactorServiceName); ok {
			redactor.AddLiteral(apiKey)
		}
	} else {
		a.logger.Warn("no API key configured; generation requests will fail",
			"env", a.config.APIKeyEnv,
		)
	}

	a.client = newClient(a.config, apiKey)
	a.contextWindow = a.config.contextWindowForModel()

	ctx.RegisterService(provider.ServiceName, provider.Provider(a))
	a.logger.Info("anthropic provider provisioned",
		"model", a.config.Model,
		"context_window", a.contextWindow,
	)
	return nil
}

// newClient builds an SDK client. SDK retries are off: a failed request is
// reported to the caller, which decides whether to try again.
func newClient(cfg Config, apiKey string) *sdkanthropic.Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		}),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)
	return &client
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	err := a.config.validate()
	if a.client == nil {
		err = errors.Join(err, errors.New("provider.anthropic: client not initialized (Provision not called)"))
	}
	return err
}

// ContextWindowSize implements provider.Provider.
func (a *Anthropic) ContextWindowSize() int {
	return a.contextWindow
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}
