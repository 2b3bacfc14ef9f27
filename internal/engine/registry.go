package engine

import (
	"fmt"
	"sort"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Factory builds an engine from its raw option map. Implementations decode
// the map into their own option struct.
type Factory func(opts map[string]interface{}, logger log.Logger) (Engine, error)

var registry = make(map[string]Factory)

// Register installs an engine factory under a name. Engines register
// themselves from init; a duplicate name is a programming error.
func Register(name string, f Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("engine %q registered twice", name))
	}
	registry[name] = f
}

// New builds the named engine.
func New(name string, opts map[string]interface{}, logger log.Logger) (Engine, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", core.ErrEngineNotFound, name, Names())
	}
	return f(opts, logger)
}

// Names lists the registered engines in stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
