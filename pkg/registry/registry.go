// Package registry maps command names to registered handler descriptors.
// Registration problems are non-fatal: invalid registrations are rejected
// with a logged warning and re-registration under an existing name is
// last-writer-wins, so a hot-reloading host can re-register freely.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pondworks/command-engine/pkg/codec"
)

const logPrefix = "registry:registry"

// Handler is the callback invoked with the decoded argument. A returned
// error (or a panic inside the handler) is classified by the dispatcher
// as a handler execution failure; it never escapes the dispatch boundary.
type Handler func(value any) error

// Descriptor binds a command name to its declared input type and handler.
type Descriptor struct {
	Name    string
	Input   codec.TypeTag
	Handler Handler
}

// Registry is the name→descriptor mapping. A single Registry is expected
// to live for the hosting process; registration is rare and lookup is
// frequent, so reads take an RLock.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{commands: make(map[string]Descriptor)}
}

// Register binds name to the given input type and handler. It returns
// false, leaving the registry unchanged, when name is empty, handler is
// nil, or input is not a usable type tag. Registering over an existing
// name replaces the previous descriptor and logs a warning.
func (r *Registry) Register(name string, input codec.TypeTag, handler Handler) bool {
	if name == "" {
		slog.Warn(fmt.Sprintf("%s - rejected registration with empty command name", logPrefix))
		return false
	}
	if handler == nil {
		slog.Warn(fmt.Sprintf("%s - rejected registration of %q with nil handler", logPrefix, name))
		return false
	}
	if !input.Valid() {
		slog.Warn(fmt.Sprintf("%s - rejected registration of %q with invalid type tag", logPrefix, name))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		slog.Warn(fmt.Sprintf("%s - command %q already registered, replacing handler", logPrefix, name))
	}
	r.commands[name] = Descriptor{Name: name, Input: input, Handler: handler}
	return true
}

// Lookup returns the current descriptor for name. Names are matched
// byte-for-byte; there is no case folding or trimming.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.commands[name]
	return d, ok
}

// Names returns a snapshot of the registered command names. Order is
// unspecified.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
