package nodes

// Source records where a linked parameter takes its value from. The port
// and node ids are authoritative; the names and type are denormalized for
// cheap lookups and diagnostics.
type Source struct {
	PortID     PortID
	NodeID     NodeID
	ShortName  string
	UniqueName string
	Type       DataType
}

// Port is a named, typed output of a node and the sole origin of links.
// Several parameters may source from one port (fan-out).
type Port struct {
	id         PortID
	parent     *Node
	shortName  string
	uniqueName string
	dtype      DataType
	visible    bool
	inUse      bool
}

// ID returns the port id within its model.
func (p *Port) ID() PortID { return p.id }

// Parent returns the owning node. The back-pointer is re-established
// whenever a node is cloned or registered into a model.
func (p *Port) Parent() *Node { return p.parent }

// ParentID returns the owning node's id, or 0 when unregistered.
func (p *Port) ParentID() NodeID {
	if p.parent == nil {
		return 0
	}
	return p.parent.id
}

// ShortName returns the name local to the node, e.g. "result".
func (p *Port) ShortName() string { return p.shortName }

// UniqueName returns the model-wide name "<node>_<short>".
func (p *Port) UniqueName() string { return p.uniqueName }

// Type returns the port's data type.
func (p *Port) Type() DataType { return p.dtype }

// SetType overwrites the port's data type (rule application).
func (p *Port) SetType(t DataType) { p.dtype = t }

// Visible reports whether an editor should show the port.
func (p *Port) Visible() bool { return p.visible }

// SetVisible sets the editor visibility flag.
func (p *Port) SetVisible(v bool) { p.visible = v }

// InUse reports whether any parameter currently sources from this port.
// Maintained by the model on every ordering refresh.
func (p *Port) InUse() bool { return p.inUse }

func (p *Port) setInUse(v bool) { p.inUse = v }

// sourceFrom builds the Source record a parameter stores when linked to
// this port.
func (p *Port) sourceFrom() Source {
	return Source{
		PortID:     p.id,
		NodeID:     p.ParentID(),
		ShortName:  p.shortName,
		UniqueName: p.uniqueName,
		Type:       p.dtype,
	}
}
