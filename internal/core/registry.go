package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

var (
	registry   = make(map[record.Kind]KindDefinition)
	registryMu sync.RWMutex
)

// Register adds a kind definition to the registry.
// Panics if the kind is already registered or has no check set constructor.
func Register(def KindDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Kind]; exists {
		panic(fmt.Sprintf("kind already registered: %s", def.Info.Kind))
	}
	if def.New == nil {
		panic(fmt.Sprintf("kind %s has no check set constructor", def.Info.Kind))
	}

	registry[def.Info.Kind] = def
}

// Get returns a kind definition.
// Returns false if not found.
func Get(kind record.Kind) (KindDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns all registered kind definitions.
// Sorted by group then by kind for consistent ordering.
func All() []KindDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]KindDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Kind < result[j].Info.Kind
	})

	return result
}

// Kinds returns the registered kinds, sorted.
func Kinds() []record.Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]record.Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
