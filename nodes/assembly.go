package nodes

import (
	"errors"
	"fmt"
	"sort"
)

// Assembly errors.
var (
	ErrModelNotFound   = errors.New("model not found")
	ErrDuplicateModel  = errors.New("duplicate model resource id")
	ErrNoAssemblyModel = errors.New("assembly model not found")
)

// Assembly is the collection of function models in a document. One model
// is the designated entry point; all others are candidate callees for
// FunctionCall nodes.
type Assembly struct {
	models  map[ResourceID]*Model
	entryID ResourceID
}

// NewAssembly creates an empty assembly.
func NewAssembly() *Assembly {
	return &Assembly{models: make(map[ResourceID]*Model)}
}

// AddModel registers a model under its resource id.
func (a *Assembly) AddModel(m *Model) error {
	if _, exists := a.models[m.ResourceID()]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateModel, m.ResourceID())
	}
	a.models[m.ResourceID()] = m
	if a.entryID == 0 {
		a.entryID = m.ResourceID()
	}
	return nil
}

// SetAssemblyModel designates the entry model.
func (a *Assembly) SetAssemblyModel(id ResourceID) error {
	if _, ok := a.models[id]; !ok {
		return fmt.Errorf("%w: %d", ErrModelNotFound, id)
	}
	a.entryID = id
	return nil
}

// AssemblyModel returns the entry model, or nil.
func (a *Assembly) AssemblyModel() *Model {
	return a.models[a.entryID]
}

// FindModel resolves a resource id, or nil. FunctionCall nodes resolve
// their callee through here on every use; they never hold a model handle.
func (a *Assembly) FindModel(id ResourceID) *Model {
	return a.models[id]
}

// DeleteModel removes a model. The entry designation is cleared when the
// entry model itself is deleted.
func (a *Assembly) DeleteModel(id ResourceID) {
	delete(a.models, id)
	if a.entryID == id {
		a.entryID = 0
	}
}

// ResourceIDs returns all model ids, ascending.
func (a *Assembly) ResourceIDs() []ResourceID {
	ids := make([]ResourceID, 0, len(a.models))
	for id := range a.models {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Functions iterates the models in ascending resource-id order.
func (a *Assembly) Functions(visit func(m *Model) bool) {
	for _, id := range a.ResourceIDs() {
		if !visit(a.models[id]) {
			return
		}
	}
}

// Len returns the number of models.
func (a *Assembly) Len() int { return len(a.models) }

// NextResourceID returns an id one above the highest in use, starting at 1.
func (a *Assembly) NextResourceID() ResourceID {
	var max ResourceID
	for id := range a.models {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Clone deep-copies the assembly, models included.
func (a *Assembly) Clone() *Assembly {
	out := NewAssembly()
	for id, m := range a.models {
		out.models[id] = m.Clone()
	}
	out.entryID = a.entryID
	return out
}
