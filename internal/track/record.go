package track

import "fmt"

// EntryState classifies one tracked object's pending mutation.
type EntryState int

const (
	// Added means the object is newly inserted this save.
	Added EntryState = iota
	// Modified means the object exists and some properties change this save.
	Modified
	// Unchanged means the object is tracked but writes nothing this save.
	Unchanged
	// Deleted means the object's row is removed this save.
	Deleted
)

// String returns the lowercase state name, matching changeset files.
func (s EntryState) String() string {
	switch s {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Unchanged:
		return "unchanged"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// ParseEntryState parses a state name as written in changeset files.
func ParseEntryState(s string) (EntryState, error) {
	switch s {
	case "added":
		return Added, nil
	case "modified":
		return Modified, nil
	case "unchanged":
		return Unchanged, nil
	case "deleted":
		return Deleted, nil
	default:
		return 0, fmt.Errorf("unknown entry state %q", s)
	}
}

// ChangeRecord is one tracked object's pending write: its entity type, its
// change state, and per-property current/original provider values.
//
// Multiple ChangeRecords may target the same physical row (shared-table
// mapping); WriteRecord does that grouping. A ChangeRecord belongs to
// exactly one save operation at a time.
type ChangeRecord struct {
	entityType string
	state      EntryState

	current   map[string]any
	original  map[string]any
	modified  map[string]bool
	generated map[string]bool // properties provisionally set by the store this save
}

// NewChangeRecord creates an empty record for one tracked object.
func NewChangeRecord(entityType string, state EntryState) *ChangeRecord {
	return &ChangeRecord{
		entityType: entityType,
		state:      state,
		current:    make(map[string]any),
		original:   make(map[string]any),
		modified:   make(map[string]bool),
		generated:  make(map[string]bool),
	}
}

// EntityType returns the tracked object's entity type name.
func (r *ChangeRecord) EntityType() string { return r.entityType }

// State returns the record's change state.
func (r *ChangeRecord) State() EntryState { return r.state }

// SetState updates the change state. The pipeline moves committed records
// to Unchanged after a successful save.
func (r *ChangeRecord) SetState(s EntryState) { r.state = s }

// Current returns the current provider value for a property (the value
// that will be or was just written). nil when unset.
func (r *ChangeRecord) Current(property string) any { return r.current[property] }

// Original returns the property's value before this save. nil when unset.
func (r *ChangeRecord) Original(property string) any { return r.original[property] }

// IsModified reports whether this specific property changes this save.
func (r *ChangeRecord) IsModified(property string) bool { return r.modified[property] }

// SetCurrent sets the current provider value for a property.
func (r *ChangeRecord) SetCurrent(property string, v any) { r.current[property] = v }

// SetOriginal sets the pre-save value for a property.
func (r *ChangeRecord) SetOriginal(property string, v any) { r.original[property] = v }

// MarkModified flags a property as changing this save.
func (r *ChangeRecord) MarkModified(property string) { r.modified[property] = true }

// MarkGenerated records a store-assigned value: sets the current value and
// remembers that the store, not the caller, supplied it, so a failed batch
// can discard it again.
func (r *ChangeRecord) MarkGenerated(property string, v any) {
	r.current[property] = v
	r.generated[property] = true
}

// HasGenerated reports whether any property holds a provisionally set
// store-generated value.
func (r *ChangeRecord) HasGenerated() bool { return len(r.generated) > 0 }

// AcceptChanges promotes current values to originals after a committed
// save: every current value becomes the new original, modified and
// generated flags clear, and non-deleted records move to Unchanged.
func (r *ChangeRecord) AcceptChanges() {
	for property, v := range r.current {
		r.original[property] = v
	}
	clear(r.modified)
	clear(r.generated)
	if r.state != Deleted {
		r.state = Unchanged
	}
}

// DiscardGenerated reverts every provisionally set store-generated value to
// the property's original value (nil when it had none) and clears the
// generated flags. Called per record during rollback of a failed batch.
func (r *ChangeRecord) DiscardGenerated() {
	for property := range r.generated {
		if orig, ok := r.original[property]; ok {
			r.current[property] = orig
		} else {
			delete(r.current, property)
		}
		delete(r.generated, property)
	}
}
