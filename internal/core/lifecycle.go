package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Configure is called right after instantiation with the module's raw
// section from the "modules" map.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that open resources or register
// services. Dependencies on other modules should be resolved lazily in
// Start, since provisioning order follows configuration order.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can check their configuration
// after Provision. Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules holding resources. Stop is called in
// reverse start order during shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}
