package toolbox

import (
	"context"
	"fmt"
	"sync"
)

// Factory builds a tool. Factories run once, when a registry is collected from a table.
type Factory func() (Tool, error)

// Table is an append-only set of tool factories contributed by independent packages,
// usually from init functions. Entries seals the table; later submissions panic.
type Table struct {
	mu      sync.Mutex
	entries []Factory
	sealed  bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Submit adds a factory. It panics if f is nil or the table has been sealed by Entries:
// both are programming errors detected at startup.
func (t *Table) Submit(f Factory) {
	if f == nil {
		panic("toolbox: Submit factory must not be nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		panic("toolbox: Submit after the table was collected")
	}
	t.entries = append(t.entries, f)
}

// Entries returns every submitted factory and seals the table.
func (t *Table) Entries() []Factory {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	return append([]Factory(nil), t.entries...)
}

// Len returns the number of submitted factories.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

var defaultTable = NewTable()

// DefaultTable returns the process-wide table used by Submit, SubmitTool and CollectAll.
func DefaultTable() *Table { return defaultTable }

// Submit adds a factory to the default table.
func Submit(f Factory) { defaultTable.Submit(f) }

// SubmitTool contributes a typed function to the default table. NewTool runs when the
// table is collected, so construction errors surface from CollectAll.
func SubmitTool[I, O any](name, description string, fn func(context.Context, I) (O, error), opts ...ToolOption) {
	defaultTable.Submit(func() (Tool, error) {
		return NewTool(name, description, fn, opts...)
	})
}

// CollectAll builds a registry from every tool submitted to the default table.
func CollectAll(opts ...RegistryOption) (*Registry, error) {
	return CollectFrom(defaultTable, opts...)
}

// CollectFrom builds a registry from every factory in table. A factory error or a
// duplicate name aborts collection with that error; a duplicate is a KindAlreadyRegistered error.
func CollectFrom(table *Table, opts ...RegistryOption) (*Registry, error) {
	r := NewRegistry(opts...)
	for _, f := range table.Entries() {
		t, err := f()
		if err != nil {
			return nil, fmt.Errorf("collect tools: %w", err)
		}
		if err := r.Register(t); err != nil {
			return nil, fmt.Errorf("collect tools: %w", err)
		}
	}
	return r, nil
}

// FunctionDeclarations collects the default table and returns its declarations.
func FunctionDeclarations() ([]Declaration, error) {
	r, err := CollectAll()
	if err != nil {
		return nil, err
	}
	return r.Declarations(), nil
}
