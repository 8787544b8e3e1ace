package config

import (
	"cmp"
	"slices"

	"github.com/catonblt/novelbuddies/internal/core"
)

// loadOrder ranks module namespaces. Modules that publish services load
// before the surfaces that consume them during Provision.
var loadOrder = map[string]int{
	"memory":   0,
	"provider": 1,
}

// Resolve returns the configured module IDs in load order: service
// providers first, then everything else, each group sorted by ID.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(rank(a), rank(b)),
			cmp.Compare(a, b),
		)
	})
	return ids
}

func rank(id string) int {
	if r, ok := loadOrder[core.ModuleID(id).Namespace()]; ok {
		return r
	}
	return len(loadOrder)
}
