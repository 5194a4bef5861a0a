package commands

import (
	"fmt"
	"sort"
	"sync"

	"todobot/internal/intent"
)

// Registry holds registered commands keyed by intent kind.
type Registry struct {
	mu   sync.RWMutex
	cmds map[intent.Kind]Command
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds: make(map[intent.Kind]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if a command for the same kind is already registered.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := c.Kind()
	if existing, exists := r.cmds[kind]; exists {
		return fmt.Errorf("command already registered for %s: %s", kind, existing.Name())
	}
	r.cmds[kind] = c
	return nil
}

// Find looks up the command for an intent kind.
func (r *Registry) Find(kind intent.Kind) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[kind]
	return cmd, ok
}

// All returns all commands in classification order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind() < result[j].Kind()
	})
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
