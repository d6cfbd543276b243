package nodes

// ContentType hints what a parameter's value means beyond its shape.
// Purely informational; the type system only cares about DataType.
type ContentType int

const (
	ContentGeneric ContentType = iota
	ContentLength
	ContentAngle
	ContentColor
)

// Parameter is a named, typed input of a node. It carries a literal value
// that applies while no link is present, and a Source once linked.
type Parameter struct {
	id       ParameterID
	parentID NodeID
	name     string
	dtype    DataType
	value    Value
	source   *Source

	inputSourceRequired bool
	isArgument          bool
	modifiable          bool
	valid               bool
	visible             bool
	contentType         ContentType
}

func newParameter(name string, t DataType) *Parameter {
	return &Parameter{
		name:                name,
		dtype:               t,
		value:               ZeroValue(t),
		inputSourceRequired: true,
		modifiable:          true,
		valid:               true,
		visible:             true,
	}
}

// ID returns the parameter id within its model.
func (p *Parameter) ID() ParameterID { return p.id }

// ParentID returns the owning node's id.
func (p *Parameter) ParentID() NodeID { return p.parentID }

// Name returns the parameter name local to its node.
func (p *Parameter) Name() string { return p.name }

// Type returns the parameter's data type.
func (p *Parameter) Type() DataType { return p.dtype }

// Value returns the current literal.
func (p *Parameter) Value() Value { return p.value }

// SetValue assigns the literal. The value's tag should match the
// parameter type; callers decode per type before assigning.
func (p *Parameter) SetValue(v Value) { p.value = v }

// Source returns the link source, or nil when unlinked.
func (p *Parameter) Source() *Source { return p.source }

// setSource installs or clears the link source.
func (p *Parameter) setSource(s *Source) { p.source = s }

// InputSourceRequired reports whether validation demands a link.
func (p *Parameter) InputSourceRequired() bool { return p.inputSourceRequired }

// SetInputSourceRequired toggles the link requirement.
func (p *Parameter) SetInputSourceRequired(v bool) { p.inputSourceRequired = v }

// IsArgument reports whether the parameter is exposed as a function
// argument rather than taking a link.
func (p *Parameter) IsArgument() bool { return p.isArgument }

// SetIsArgument marks the parameter as a function argument.
func (p *Parameter) SetIsArgument(v bool) { p.isArgument = v }

// Modifiable reports whether an editor may change the literal.
func (p *Parameter) Modifiable() bool { return p.modifiable }

// SetModifiable toggles editor writability.
func (p *Parameter) SetModifiable(v bool) { p.modifiable = v }

// Valid reports the last validation verdict for this parameter.
func (p *Parameter) Valid() bool { return p.valid }

// SetValid records a validation verdict.
func (p *Parameter) SetValid(v bool) { p.valid = v }

// Visible reports whether an editor should show the parameter.
func (p *Parameter) Visible() bool { return p.visible }

// SetVisible sets the editor visibility flag.
func (p *Parameter) SetVisible(v bool) { p.visible = v }

// ContentType returns the semantic hint.
func (p *Parameter) ContentType() ContentType { return p.contentType }

// SetContentType sets the semantic hint.
func (p *Parameter) SetContentType(c ContentType) { p.contentType = c }

// clone returns a deep copy, including the Source record. The copy keeps
// the original ids; registration into a model reassigns them.
func (p *Parameter) clone() *Parameter {
	out := *p
	if p.source != nil {
		src := *p.source
		out.source = &src
	}
	return &out
}

// retype returns a copy with the declared type replaced, preserving the
// Source and every flag. The literal is reset to the new type's zero
// unless the tags already agree.
func (p *Parameter) retype(t DataType) *Parameter {
	out := p.clone()
	if out.dtype != t {
		out.dtype = t
		out.value = ZeroValue(t)
	}
	return out
}
