package config

import (
	"cmp"
	"slices"
	"strings"
)

// namespaceOrder ranks module namespaces for loading. Stores come first so
// that consumers find them during provisioning; channels come last so that
// input starts only once everything behind the router is running. Shutdown
// runs in reverse: channels stop taking input first, stores close last.
var namespaceOrder = []string{"history", "unpack", "gateway", "channel"}

// Resolve returns the configured module IDs in load order: by namespace
// rank, then by ID. Unknown namespaces load after the known ones.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(namespaceRank(a), namespaceRank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

func namespaceRank(id string) int {
	ns, _, _ := strings.Cut(id, ".")
	if i := slices.Index(namespaceOrder, ns); i >= 0 {
		return i
	}
	return len(namespaceOrder)
}
