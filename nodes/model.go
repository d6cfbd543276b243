package nodes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fieldforge/fieldforge/dirgraph"
)

// Model errors.
var (
	ErrUnknownKind   = errors.New("unknown node kind")
	ErrNodeNotFound  = errors.New("node not found")
	ErrPortNotFound  = errors.New("port not found")
	ErrParamNotFound = errors.New("parameter not found")
)

// Model is a single typed function graph. It owns its nodes exclusively;
// every cross-reference inside a model is by id. A model always carries
// exactly one Begin and one End node once created through CreateBeginEnd.
//
// A model is not safe for concurrent use; one logical owner mutates it at
// a time.
type Model struct {
	resourceID  ResourceID
	displayName string

	nodes     map[NodeID]*Node
	nodeOrder []NodeID
	ports     map[PortID]*Port
	params    map[ParameterID]*Parameter
	graph     *dirgraph.SparseGraph

	nextNodeID  NodeID
	nextPortID  PortID
	nextParamID ParameterID

	beginID NodeID
	endID   NodeID

	dirty bool
	valid bool
}

// NewModel creates an empty model with the given resource id and display
// name. Call CreateBeginEnd before adding content.
func NewModel(resourceID ResourceID, displayName string) *Model {
	m := &Model{
		resourceID:  resourceID,
		displayName: displayName,
		valid:       true,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.nodes = make(map[NodeID]*Node)
	m.nodeOrder = nil
	m.ports = make(map[PortID]*Port)
	m.params = make(map[ParameterID]*Parameter)
	m.graph = dirgraph.NewSparseGraph()
	m.nextNodeID = 0
	m.nextPortID = 0
	m.nextParamID = 0
	m.beginID = 0
	m.endID = 0
	m.dirty = false
}

// ResourceID returns the document-level id of this function.
func (m *Model) ResourceID() ResourceID { return m.resourceID }

// SetResourceID updates the document-level id.
func (m *Model) SetResourceID(id ResourceID) { m.resourceID = id }

// DisplayName returns the function's human-readable name.
func (m *Model) DisplayName() string { return m.displayName }

// SetDisplayName updates the function's human-readable name.
func (m *Model) SetDisplayName(name string) { m.displayName = name }

// IsValid returns the verdict of the last validator pass.
func (m *Model) IsValid() bool { return m.valid }

// SetIsValid records a validator verdict.
func (m *Model) SetIsValid(v bool) { m.valid = v }

// Graph exposes the dependency graph for the algorithms package.
func (m *Model) Graph() dirgraph.DirectedGraph { return m.graph }

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// Create builds a node of the given kind and inserts it.
func (m *Model) Create(kind NodeKind) (*Node, error) {
	n := New(kind)
	if n == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return m.Insert(n), nil
}

// Insert registers a node (fresh or cloned) under a fresh id, assigns ids
// to its ports and parameters, and adds it to the dependency graph.
// Sources carried by cloned parameters are left untouched; callers doing
// cross-model moves rewire them afterwards.
func (m *Model) Insert(n *Node) *Node {
	m.nextNodeID++
	n.id = m.nextNodeID
	n.setUniqueName(fmt.Sprintf("%s_%d", n.Name(), n.id))

	// Cloned nodes carry ids from their model of origin; re-id their
	// ports and parameters for this model. Link sources are kept so the
	// caller can rewire them against the origin model.
	n.Outputs(func(_ string, port *Port) bool {
		port.id = 0
		return true
	})
	n.Parameters(func(_ string, p *Parameter) bool {
		p.id = 0
		return true
	})

	m.nodes[n.id] = n
	m.nodeOrder = append(m.nodeOrder, n.id)
	m.graph.AddVertex(n.id)
	m.registerNode(n)

	switch n.kind {
	case KindBegin:
		m.beginID = n.id
	case KindEnd:
		m.endID = n.id
	}

	m.dirty = true
	return n
}

// RegisterIO assigns ids to any newly declared ports and parameters of a
// node that is already part of the model. Call after reshaping a node's
// signature, e.g. UpdateInputsAndOutputs.
func (m *Model) RegisterIO(n *Node) {
	m.registerNode(n)
	m.dirty = true
}

// registerNode assigns fresh ids to any unregistered ports and parameters
// of n and refreshes registry pointers for already-registered ones.
// Registry entries for ports and parameters the node no longer owns are
// dropped.
func (m *Model) registerNode(n *Node) {
	n.refreshOwnership()
	for id, p := range m.params {
		if p.ParentID() == n.id && n.parameters[p.Name()] != p {
			delete(m.params, id)
		}
	}
	for id, port := range m.ports {
		if port.ParentID() == n.id && n.outputs[port.ShortName()] != port {
			delete(m.ports, id)
		}
	}
	n.Outputs(func(name string, port *Port) bool {
		if port.id == 0 {
			m.nextPortID++
			port.id = m.nextPortID
		}
		m.ports[port.id] = port
		return true
	})
	n.Parameters(func(name string, p *Parameter) bool {
		if p.id == 0 {
			m.nextParamID++
			p.id = m.nextParamID
		}
		m.params[p.id] = p
		return true
	})
}

// refreshSources re-registers a node after rule application and updates
// the denormalized Source records of parameters fed by its ports.
func (m *Model) refreshSources(n *Node) {
	m.registerNode(n)
	n.Outputs(func(_ string, port *Port) bool {
		for _, p := range m.params {
			if src := p.Source(); src != nil && src.PortID == port.id {
				refreshed := port.sourceFrom()
				p.setSource(&refreshed)
			}
		}
		return true
	})
}

// Remove deletes a node after clearing every link in which it takes part,
// on either side.
func (m *Model) Remove(id NodeID) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}

	// links into the node
	n.Parameters(func(_ string, p *Parameter) bool {
		if src := p.Source(); src != nil {
			m.RemoveLink(src.PortID, p.id)
		}
		return true
	})

	// links out of the node
	n.Outputs(func(_ string, port *Port) bool {
		for _, p := range m.params {
			if src := p.Source(); src != nil && src.PortID == port.id {
				m.RemoveLink(port.id, p.id)
			}
		}
		return true
	})

	return m.RemoveWithoutLinks(id)
}

// RemoveWithoutLinks deletes a node whose links have already been patched
// (the flattener path). Incident dependency edges fall with the vertex.
func (m *Model) RemoveWithoutLinks(id NodeID) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	n.Outputs(func(_ string, port *Port) bool {
		delete(m.ports, port.id)
		return true
	})
	n.Parameters(func(_ string, p *Parameter) bool {
		delete(m.params, p.id)
		return true
	})
	delete(m.nodes, id)
	for i, nid := range m.nodeOrder {
		if nid == id {
			m.nodeOrder = append(m.nodeOrder[:i], m.nodeOrder[i+1:]...)
			break
		}
	}
	m.graph.RemoveVertex(id)
	if id == m.beginID {
		m.beginID = 0
	}
	if id == m.endID {
		m.endID = 0
	}
	m.dirty = true
	return true
}

// AddLink connects a port to a parameter. The link is rejected when the
// endpoints are unknown, when the types differ (unless skipTypeCheck),
// when the parameter's node would come to depend on itself, or when the
// implied dependency edge would close a cycle. On rejection nothing is
// modified.
func (m *Model) AddLink(portID PortID, paramID ParameterID, skipTypeCheck bool) bool {
	port, ok := m.ports[portID]
	if !ok {
		return false
	}
	param, ok := m.params[paramID]
	if !ok {
		return false
	}
	if !skipTypeCheck && port.Type() != param.Type() {
		return false
	}

	consumer := param.ParentID()
	producer := port.ParentID()
	if consumer == 0 || producer == 0 || consumer == producer {
		return false
	}
	if !dirgraph.AddEdgeIfConflictFree(m.graph, consumer, producer) {
		return false
	}

	src := port.sourceFrom()
	param.setSource(&src)
	port.setInUse(true)
	m.dirty = true
	return true
}

// RemoveLink disconnects a parameter from a port. The dependency edge
// between the two nodes survives while any other link between the same
// pair remains.
func (m *Model) RemoveLink(portID PortID, paramID ParameterID) bool {
	param, ok := m.params[paramID]
	if !ok {
		return false
	}
	src := param.Source()
	if src == nil || src.PortID != portID {
		return false
	}
	param.setSource(nil)

	port, havePort := m.ports[portID]
	producer := src.NodeID
	consumer := param.ParentID()

	stillLinked := false
	portStillUsed := false
	for _, p := range m.params {
		other := p.Source()
		if other == nil {
			continue
		}
		if other.PortID == portID {
			portStillUsed = true
		}
		if p.ParentID() == consumer && other.NodeID == producer {
			stillLinked = true
		}
	}
	if !stillLinked {
		m.graph.RemoveEdge(consumer, producer)
	}
	if havePort && !portStillUsed {
		port.setInUse(false)
	}
	m.dirty = true
	return true
}

// UpdateGraphAndOrderIfNeeded recomputes the topological order and port
// usage when the graph changed since the last refresh.
func (m *Model) UpdateGraphAndOrderIfNeeded() {
	if !m.dirty {
		return
	}
	order := dirgraph.TopologicalSort(m.graph)
	for idx, id := range order {
		if n, ok := m.nodes[id]; ok {
			n.order = int32(idx)
		}
	}
	for _, port := range m.ports {
		port.setInUse(false)
	}
	for _, p := range m.params {
		if src := p.Source(); src != nil {
			if port, ok := m.ports[src.PortID]; ok {
				port.setInUse(true)
			}
		}
	}
	m.dirty = false
}

// UpdateTypes resolves every node's type rules in topological order so
// producers are typed before their consumers.
func (m *Model) UpdateTypes() {
	m.UpdateGraphAndOrderIfNeeded()
	for _, n := range m.NodesInOrder() {
		n.ResolveTypes(m)
	}
}

// NodesInOrder returns the nodes sorted by their topological order index,
// ties broken by id. Call UpdateGraphAndOrderIfNeeded first for a fresh
// ordering.
func (m *Model) NodesInOrder() []*Node {
	out := make([]*Node, 0, len(m.nodes))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].order != out[j].order {
			return out[i].order < out[j].order
		}
		return out[i].id < out[j].id
	})
	return out
}

// NodesByID returns the nodes sorted by ascending id.
func (m *Model) NodesByID() []*Node {
	out := make([]*Node, 0, len(m.nodes))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// GetNode resolves a node id.
func (m *Model) GetNode(id NodeID) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// FindNode resolves a node by unique name.
func (m *Model) FindNode(uniqueName string) (*Node, bool) {
	for _, n := range m.nodes {
		if n.uniqueName == uniqueName {
			return n, true
		}
	}
	return nil, false
}

// FindNodeByDisplayName resolves a node by its editor label.
func (m *Model) FindNodeByDisplayName(displayName string) (*Node, bool) {
	for _, id := range m.nodeOrder {
		if m.nodes[id].DisplayName() == displayName {
			return m.nodes[id], true
		}
	}
	return nil, false
}

// GetPort resolves a port id.
func (m *Model) GetPort(id PortID) (*Port, bool) {
	p, ok := m.ports[id]
	return p, ok
}

// GetParameter resolves a parameter id.
func (m *Model) GetParameter(id ParameterID) (*Parameter, bool) {
	p, ok := m.params[id]
	return p, ok
}

// Parameters iterates every registered parameter in ascending id order.
func (m *Model) Parameters(visit func(p *Parameter) bool) {
	ids := make([]ParameterID, 0, len(m.params))
	for id := range m.params {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if !visit(m.params[id]) {
			return
		}
	}
}

// BeginNode returns the model's Begin marker, or nil.
func (m *Model) BeginNode() *Node { return m.nodes[m.beginID] }

// EndNode returns the model's End marker, or nil.
func (m *Model) EndNode() *Node { return m.nodes[m.endID] }

// CreateBeginEnd inserts the Begin and End markers: Begin exposes the
// evaluation position "pos", End consumes the distance "shape".
func (m *Model) CreateBeginEnd() {
	begin := m.Insert(New(KindBegin))
	begin.AddOutputPort(FieldPos, TypeFloat3)
	m.registerNode(begin)

	end := m.Insert(New(KindEnd))
	end.AddInput(FieldShape, TypeFloat)
	m.registerNode(end)
}

// CreateBeginEndWithDefaultInAndOuts inserts Begin/End with the defaults
// of an assembly entry point: position in, shape and color out.
func (m *Model) CreateBeginEndWithDefaultInAndOuts() {
	m.CreateBeginEnd()
	end := m.EndNode()
	end.AddInput(FieldColor, TypeFloat3)
	m.registerNode(end)
}

// AddArgument exposes a new function argument as an output port on Begin.
func (m *Model) AddArgument(name string, t DataType) (*Port, error) {
	begin := m.BeginNode()
	if begin == nil {
		return nil, fmt.Errorf("%w: model has no Begin node", ErrNodeNotFound)
	}
	port := begin.AddOutputPort(name, t)
	m.registerNode(begin)
	return port, nil
}

// AddFunctionOutput adds a named function output as an End parameter with
// the given typed default.
func (m *Model) AddFunctionOutput(name string, defaultValue Value) (*Parameter, error) {
	end := m.EndNode()
	if end == nil {
		return nil, fmt.Errorf("%w: model has no End node", ErrNodeNotFound)
	}
	p := end.AddInput(name, defaultValue.Type())
	p.SetValue(defaultValue)
	m.registerNode(end)
	return p, nil
}

// Clear wipes all nodes and resets the id allocators, preserving the
// resource id and display name.
func (m *Model) Clear() {
	m.reset()
}

// Clone returns a deep copy with identical ids and wiring. Used by the
// flattener so a failed flatten leaves the input untouched.
func (m *Model) Clone() *Model {
	out := NewModel(m.resourceID, m.displayName)
	out.nextNodeID = m.nextNodeID
	out.nextPortID = m.nextPortID
	out.nextParamID = m.nextParamID
	out.beginID = m.beginID
	out.endID = m.endID
	out.dirty = m.dirty
	out.valid = m.valid

	for _, id := range m.nodeOrder {
		n := m.nodes[id].Clone()
		out.nodes[n.id] = n
		out.nodeOrder = append(out.nodeOrder, n.id)
		out.graph.AddVertex(n.id)
		n.Outputs(func(_ string, port *Port) bool {
			out.ports[port.id] = port
			return true
		})
		n.Parameters(func(_ string, p *Parameter) bool {
			out.params[p.id] = p
			return true
		})
	}

	// rebuild dependency edges from the copied sources
	for _, p := range out.params {
		if src := p.Source(); src != nil {
			out.graph.AddEdge(p.ParentID(), src.NodeID)
		}
	}
	return out
}
