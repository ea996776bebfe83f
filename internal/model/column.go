package model

import "fmt"

// Column is the immutable descriptor for one key or foreign-key column.
//
// A column can be backed by properties on several entity types when those
// types share a table (shared-table mapping, table splitting). PropertyFor
// resolves which property on a given entity type backs the column; "not
// mapped" is exclusion for that entity type, never an error.
type Column struct {
	name      string
	storeType string
	generated bool
	comparer  ValueComparer
	mappings  map[string]string // entity type name -> property name
}

// NewColumn builds a column descriptor. storeType is the provider type
// used for DDL ("INTEGER", "TEXT", ...); empty defaults to TEXT. A nil
// comparer or an empty mapping set is a metadata defect and aborts setup.
func NewColumn(name, storeType string, comparer ValueComparer, generated bool, mappings map[string]string) (*Column, error) {
	if name == "" {
		return nil, fmt.Errorf("column: name is required")
	}
	if comparer == nil {
		return nil, fmt.Errorf("column %q: value comparer is required", name)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("column %q: no entity type maps this column", name)
	}
	m := make(map[string]string, len(mappings))
	for entityType, property := range mappings {
		if entityType == "" || property == "" {
			return nil, fmt.Errorf("column %q: empty entity type or property in mapping", name)
		}
		m[entityType] = property
	}
	if storeType == "" {
		storeType = "TEXT"
	}
	return &Column{name: name, storeType: storeType, generated: generated, comparer: comparer, mappings: m}, nil
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// StoreType returns the provider column type used for DDL.
func (c *Column) StoreType() string { return c.storeType }

// Generated reports whether the store assigns this column's value.
func (c *Column) Generated() bool { return c.generated }

// Comparer returns the provider value comparer for this column.
func (c *Column) Comparer() ValueComparer { return c.comparer }

// PropertyFor returns the property on entityType that backs this column,
// or false when entityType does not map it. Pure lookup, no side effects.
func (c *Column) PropertyFor(entityType string) (string, bool) {
	p, ok := c.mappings[entityType]
	return p, ok
}

// EntityTypes returns the entity type names that map this column.
func (c *Column) EntityTypes() []string {
	out := make([]string, 0, len(c.mappings))
	for et := range c.mappings {
		out = append(out, et)
	}
	return out
}
