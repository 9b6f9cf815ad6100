package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// A module goes through New, Configure, Provision and Validate while the
// App loads, then Start and Stop while it runs. Each step is optional: a
// module implements only the interfaces it needs.

// Configurable receives the module's section of the configuration file.
// It is skipped when the file has no section for the module.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner resolves defaults, opens resources and registers services.
// Services registered by earlier modules are visible here.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks the provisioned configuration. It must not have side
// effects.
type Validator interface {
	Validate() error
}

// Starter begins background work: polling, listeners, worker pools.
type Starter interface {
	Start() error
}

// Stopper releases what the module holds. It runs in reverse load order,
// including for modules that do not implement Starter, and must return
// once ctx expires.
type Stopper interface {
	Stop(ctx context.Context) error
}
