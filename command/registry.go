package command

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// Entry is a registered command.
type Entry struct {
	// Name is the name by which the command is invoked.
	Name string
	// Command is the command to execute.
	Command Command
	// Help is a short description for the help listing.
	Help string
	// Hidden excludes the command from the help listing.
	// Hidden commands are still invocable.
	Hidden bool
}

// Registry maps command names to commands. The zero value is an empty
// registry. A registry is populated once at startup; after that it is only
// read, so concurrent lookups are safe.
type Registry struct {
	m map[string]*Entry
}

// Register adds a command. It panics if the name is empty, contains space
// characters, or is already registered.
func (r *Registry) Register(name string, cmd Command, help string, hidden bool) {
	if name == "" || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		panic("command: invalid command name " + name)
	}
	if _, ok := r.m[name]; ok {
		panic("command: duplicate command " + name)
	}
	if r.m == nil {
		r.m = make(map[string]*Entry)
	}
	r.m[name] = &Entry{Name: name, Command: cmd, Help: help, Hidden: hidden}
}

// Lookup finds a command by its exact name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.m[name]
	return e, ok
}

// Visible returns the commands which are not hidden, sorted by name.
func (r *Registry) Visible() []Entry {
	names := slices.Sorted(maps.Keys(r.m))
	v := make([]Entry, 0, len(names))
	for _, name := range names {
		if e := r.m[name]; !e.Hidden {
			v = append(v, *e)
		}
	}
	return v
}
