package core

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"sync"
)

// idPattern is the accepted module ID shape: "<namespace>.<name>".
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

var (
	registry   = make(map[ModuleID]ModuleInfo)
	registryMu sync.RWMutex
)

// RegisterModule records a compiled-in module so that configuration can
// refer to it by ID. Modules call it from init(). It panics on an invalid
// or duplicate ID, or a nil constructor, since those are build errors.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if !idPattern.MatchString(string(info.ID)) {
		panic(fmt.Sprintf("invalid module ID %q: want <namespace>.<name>", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	registry[info.ID] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return filterModules(func(ModuleInfo) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace, e.g.
// "channel" for "channel.telegram", sorted by ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return filterModules(func(info ModuleInfo) bool {
		return info.ID.Namespace() == namespace
	})
}

// Namespaces returns the distinct namespaces of the registered modules.
func Namespaces() []string {
	var out []string
	for _, info := range GetModules() {
		if ns := info.ID.Namespace(); !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	return out
}

func filterModules(keep func(ModuleInfo) bool) []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ModuleInfo
	for _, info := range registry {
		if keep(info) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[ModuleID]ModuleInfo)
}
