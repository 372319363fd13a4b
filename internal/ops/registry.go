/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package ops

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
)

// CommandGroup represents the operational classification of commands
type CommandGroup string

const (
	GroupPublish CommandGroup = "publish" // build, push
	GroupSupport CommandGroup = "support" // version, help
)

// CommandRegistration represents a registered command with its classification
type CommandRegistration struct {
	Name        string
	Group       CommandGroup
	Command     *cobra.Command
	Description string
	// Mutates reports whether the command writes to a remote store.
	Mutates bool
}

// Registry manages command classifications and registrations
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*CommandRegistration
	groupIndex map[CommandGroup][]*CommandRegistration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]*CommandRegistration),
		groupIndex: make(map[CommandGroup][]*CommandRegistration),
	}
}

// Global registry instance
var globalRegistry = NewRegistry()

// GetRegistry returns the global command registry
func GetRegistry() *Registry {
	return globalRegistry
}

// RegisterCommand registers a command with its operational classification
func RegisterCommand(name string, group CommandGroup, cmd *cobra.Command, description string, mutates bool) error {
	return GetRegistry().Register(&CommandRegistration{
		Name:        name,
		Group:       group,
		Command:     cmd,
		Description: description,
		Mutates:     mutates,
	})
}

// Register adds a command to the registry
func (r *Registry) Register(reg *CommandRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[reg.Name]; exists {
		return fmt.Errorf("command %s already registered", reg.Name)
	}
	if reg.Group != GroupPublish && reg.Group != GroupSupport {
		return fmt.Errorf("command %s: unknown group %q", reg.Name, reg.Group)
	}

	r.commands[reg.Name] = reg
	r.groupIndex[reg.Group] = append(r.groupIndex[reg.Group], reg)
	return nil
}

// GetCommand returns a registered command by name
func (r *Registry) GetCommand(name string) (*CommandRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommandsByGroup returns the commands of a group sorted by name
func (r *Registry) GetCommandsByGroup(group CommandGroup) []*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]*CommandRegistration(nil), r.groupIndex[group]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetMutatingCommands returns the commands that write to a remote store
func (r *Registry) GetMutatingCommands() []*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*CommandRegistration
	for _, c := range r.commands {
		if c.Mutates {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListGroups returns all command groups and their command counts
func (r *Registry) ListGroups() map[CommandGroup]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[CommandGroup]int)
	for group, commands := range r.groupIndex {
		result[group] = len(commands)
	}
	return result
}

// coreCommands lists the commands every build must register, with their group
var coreCommands = map[string]CommandGroup{
	"build":   GroupPublish,
	"push":    GroupPublish,
	"version": GroupSupport,
}

// Validate reports core commands that are missing or registered under the wrong group.
func (r *Registry) Validate() []error {
	names := make([]string, 0, len(coreCommands))
	for n := range coreCommands {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		cmd, ok := r.GetCommand(name)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("core command %s is not registered", name))
		case cmd.Group != coreCommands[name]:
			errs = append(errs, fmt.Errorf("core command %s: expected group %s, got %s", name, coreCommands[name], cmd.Group))
		}
	}
	return errs
}
