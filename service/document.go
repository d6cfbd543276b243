// Package service exposes the graph core to external tools: a Document
// owning the assembly and its resources, and the GraphService with one
// synchronous entry point per documented operation.
package service

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fieldforge/fieldforge/nodes"
	"github.com/fieldforge/fieldforge/resource"
)

// Document owns an assembly, its resource manager, and the lifecycle
// operations spanning both. All mutation goes through one logical owner
// at a time; long-running collaborators publish results only between
// core calls.
type Document struct {
	id        uuid.UUID
	assembly  *nodes.Assembly
	resources *resource.Manager
	logger    *slog.Logger
}

// NewDocument creates a document with an empty entry function.
func NewDocument(logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	doc := &Document{
		id:        uuid.New(),
		assembly:  nodes.NewAssembly(),
		resources: resource.NewManager(),
		logger:    logger,
	}

	entry := nodes.NewModel(1, "assembly")
	entry.CreateBeginEndWithDefaultInAndOuts()
	_ = doc.assembly.AddModel(entry)
	return doc
}

// NewDocumentWithAssembly wraps an existing assembly (importer path).
func NewDocumentWithAssembly(assembly *nodes.Assembly, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{
		id:        uuid.New(),
		assembly:  assembly,
		resources: resource.NewManager(),
		logger:    logger,
	}
}

// ID returns the document identity.
func (d *Document) ID() uuid.UUID { return d.id }

// Assembly returns the owned assembly.
func (d *Document) Assembly() *nodes.Assembly { return d.assembly }

// Resources returns the owned resource manager.
func (d *Document) Resources() *resource.Manager { return d.resources }

// NewFunction creates and registers an empty function model under a
// fresh resource id.
func (d *Document) NewFunction(displayName string) *nodes.Model {
	m := nodes.NewModel(d.assembly.NextResourceID(), displayName)
	m.CreateBeginEnd()
	_ = d.assembly.AddModel(m)
	return m
}

// Flatten inlines every function call of the entry model and returns the
// resulting self-contained model. The document's own assembly is left
// untouched; callers hand the result to the kernel generator.
func (d *Document) Flatten() (*nodes.Model, error) {
	flattener := nodes.NewFlattener(d.assembly)
	flat, err := flattener.Flatten()
	if err != nil {
		return nil, err
	}
	return flat.AssemblyModel(), nil
}

// Validate runs the validator over the whole assembly and returns the
// findings.
func (d *Document) Validate() []nodes.ValidationError {
	validator := nodes.NewValidator()
	validator.Validate(d.assembly)
	return validator.Errors()
}

// SetParameterValue assigns a literal addressed by the triple the
// external tools use: function resource id, node display name, parameter
// name. The value must carry the parameter's exact type tag.
func (d *Document) SetParameterValue(functionID nodes.ResourceID, nodeDisplayName, parameterName string, value nodes.Value) error {
	m := d.assembly.FindModel(functionID)
	if m == nil {
		return fmt.Errorf("%w: %d", nodes.ErrModelNotFound, functionID)
	}
	n, ok := m.FindNodeByDisplayName(nodeDisplayName)
	if !ok {
		return fmt.Errorf("%w: %q in function %d", nodes.ErrNodeNotFound, nodeDisplayName, functionID)
	}
	p := n.Parameter(parameterName)
	if p == nil {
		return fmt.Errorf("%w: %q on node %q", nodes.ErrParamNotFound, parameterName, nodeDisplayName)
	}
	if p.Type() != value.Type() {
		return fmt.Errorf("parameter %q expects %s, got %s", parameterName, p.Type(), value.Type())
	}
	p.SetValue(value)
	return nil
}

// UpdateSamplerOffsets refreshes the cached extents of every image
// sampler in the model from the resource manager. Samplers whose backing
// resource disappeared fall back to zero extents; the degradation is
// logged rather than reported as an error.
func (d *Document) UpdateSamplerOffsets(m *nodes.Model) {
	for _, n := range m.NodesByID() {
		if n.Kind() != nodes.KindImageSampler {
			continue
		}
		resParam := n.Parameter(nodes.FieldResourceID)
		if resParam == nil {
			continue
		}
		id, ok := resParam.Value().ResourceID()
		if !ok {
			continue
		}
		extents, found := d.resources.ExtentsOf(resource.Key{ResourceID: uint32(id)})
		if !found {
			d.logger.Warn("image sampler resource missing, using zero extents",
				"model", m.DisplayName(), "node", n.DisplayName(), "resource", uint32(id))
		}
		n.Parameter(nodes.FieldStart).SetValue(nodes.Float3Value(nodes.Float3{X: float32(extents.StartIndex)}))
		n.Parameter(nodes.FieldEnd).SetValue(nodes.Float3Value(nodes.Float3{X: float32(extents.EndIndex)}))
		n.Parameter(nodes.FieldDimensions).SetValue(nodes.Float3Value(nodes.Float3{
			X: float32(extents.Dimensions[0]),
			Y: float32(extents.Dimensions[1]),
			Z: float32(extents.Dimensions[2]),
		}))
	}
}
