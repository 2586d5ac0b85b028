// Package registry provides the in-process index of registered task
// definitions, keyed by task name.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mintaka-io/fxasynq/task"
	"github.com/mintaka-io/fxasynq/xerrors"
)

// Registry is the index of task definitions known to this process.
type Registry interface {
	// Register adds a definition. Registering a name twice is an error.
	Register(def task.Definition) error
	// Lookup retrieves the definition for a task name.
	Lookup(name string) (task.Definition, error)
	// Unregister removes a definition by name.
	Unregister(name string)
	// Names returns a sorted list of all registered task names.
	Names() []string
}

// DefaultRegistry is a concrete implementation of the Registry interface.
type DefaultRegistry struct {
	mu    sync.RWMutex
	tasks map[string]task.Definition
}

// New creates a new empty registry.
func New() *DefaultRegistry {
	return &DefaultRegistry{tasks: make(map[string]task.Definition)}
}

// Register adds a definition to the registry.
func (r *DefaultRegistry) Register(def task.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[def.Name]; exists {
		return fmt.Errorf("%w: %q", xerrors.ErrDuplicateTask, def.Name)
	}
	r.tasks[def.Name] = def
	return nil
}

// Lookup retrieves the definition registered under name.
func (r *DefaultRegistry) Lookup(name string) (task.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.tasks[name]
	if !exists {
		return task.Definition{}, fmt.Errorf("%w: %q", xerrors.ErrNotFound, name)
	}
	return def, nil
}

// Unregister removes a definition by name.
func (r *DefaultRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, name)
}

// Names returns a sorted list of all registered task names.
func (r *DefaultRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ Registry = (*DefaultRegistry)(nil)
