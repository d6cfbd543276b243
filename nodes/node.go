package nodes

import "fmt"

// Category groups node kinds for editor palettes.
type Category int

const (
	CategoryInternal Category = iota
	CategoryMath
	CategoryMisc
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMath:
		return "Math"
	case CategoryMisc:
		return "Misc"
	default:
		return "Internal"
	}
}

// RuleType labels which shape family a type rule (and, after resolution,
// a node) currently operates in.
type RuleType int

const (
	RuleDefault RuleType = iota
	RuleScalar
	RuleVector
	RuleMatrix
)

// TypeRule is one entry of the data-driven dispatch table that makes
// arithmetic nodes shape-polymorphic: when the observed input types equal
// the Input pattern (TypeAny matching anything), the node's parameters
// and ports are rewritten to the types the rule pins.
type TypeRule struct {
	Type   RuleType
	Input  map[string]DataType
	Output map[string]DataType
}

// Node is a single operation in a function graph. The catalog of kinds is
// closed; behavior differences between kinds are data (parameters, ports,
// type rules), not subtypes.
type Node struct {
	id          NodeID
	kind        NodeKind
	category    Category
	uniqueName  string
	displayName string
	tag         string
	order       int32
	position    [2]float32

	parameters map[string]*Parameter
	paramOrder []string
	outputs    map[string]*Port
	portOrder  []string

	typeRules []TypeRule
	ruleType  RuleType

	// functionID caches the resolved callee for FunctionCall nodes.
	functionID ResourceID
}

func newNode(kind NodeKind, category Category) *Node {
	return &Node{
		kind:       kind,
		category:   category,
		parameters: make(map[string]*Parameter),
		outputs:    make(map[string]*Port),
	}
}

// ID returns the node id within its model, 0 before insertion.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the node's catalog kind.
func (n *Node) Kind() NodeKind { return n.kind }

// Category returns the palette category.
func (n *Node) Category() Category { return n.category }

// Name returns the kind's base name, e.g. "Addition".
func (n *Node) Name() string { return string(n.kind) }

// UniqueName returns the model-wide stable name "<kind>_<id>".
func (n *Node) UniqueName() string { return n.uniqueName }

// setUniqueName renames the node and refreshes every port's unique name.
func (n *Node) setUniqueName(name string) {
	n.uniqueName = name
	for _, port := range n.outputs {
		port.uniqueName = n.uniqueName + "_" + port.shortName
	}
}

// DisplayName returns the editor label, defaulting to the unique name.
func (n *Node) DisplayName() string {
	if n.displayName == "" {
		return n.uniqueName
	}
	return n.displayName
}

// SetDisplayName sets the editor label.
func (n *Node) SetDisplayName(name string) { n.displayName = name }

// Tag returns the layout group tag. Not semantic.
func (n *Node) Tag() string { return n.tag }

// SetTag sets the layout group tag.
func (n *Node) SetTag(tag string) { n.tag = tag }

// Order returns the node's topological ordering index, assigned by the
// model whenever ordering is refreshed.
func (n *Node) Order() int32 { return n.order }

// Position returns the editor canvas position. Layout only.
func (n *Node) Position() [2]float32 { return n.position }

// SetPosition stores the editor canvas position.
func (n *Node) SetPosition(x, y float32) { n.position = [2]float32{x, y} }

// RuleType returns the shape family of the last applied rule.
func (n *Node) RuleType() RuleType { return n.ruleType }

// Parameter returns the named input, or nil.
func (n *Node) Parameter(name string) *Parameter {
	return n.parameters[name]
}

// ParameterNames returns the input names in declaration order.
func (n *Node) ParameterNames() []string {
	out := make([]string, len(n.paramOrder))
	copy(out, n.paramOrder)
	return out
}

// Parameters iterates the inputs in declaration order.
func (n *Node) Parameters(visit func(name string, p *Parameter) bool) {
	for _, name := range n.paramOrder {
		if !visit(name, n.parameters[name]) {
			return
		}
	}
}

// AddInput declares a new input of the given type. Existing inputs with
// the same name are replaced in place, keeping declaration order and
// their registered id.
func (n *Node) AddInput(name string, t DataType) *Parameter {
	p := newParameter(name, t)
	p.parentID = n.id
	if existing, exists := n.parameters[name]; exists {
		p.id = existing.id
	} else {
		n.paramOrder = append(n.paramOrder, name)
	}
	n.parameters[name] = p
	return p
}

// removeInput drops an input declaration. Used when a FunctionCall's
// signature shrinks.
func (n *Node) removeInput(name string) {
	if _, ok := n.parameters[name]; !ok {
		return
	}
	delete(n.parameters, name)
	for i, pn := range n.paramOrder {
		if pn == name {
			n.paramOrder = append(n.paramOrder[:i], n.paramOrder[i+1:]...)
			break
		}
	}
}

// FindOutputPort returns the named output, or nil.
func (n *Node) FindOutputPort(name string) *Port {
	return n.outputs[name]
}

// OutputNames returns the output names in declaration order.
func (n *Node) OutputNames() []string {
	out := make([]string, len(n.portOrder))
	copy(out, n.portOrder)
	return out
}

// Outputs iterates the output ports in declaration order.
func (n *Node) Outputs(visit func(name string, p *Port) bool) {
	for _, name := range n.portOrder {
		if !visit(name, n.outputs[name]) {
			return
		}
	}
}

// AddOutputPort declares a new output of the given type, or retypes an
// existing one of the same name.
func (n *Node) AddOutputPort(name string, t DataType) *Port {
	if port, ok := n.outputs[name]; ok {
		port.dtype = t
		return port
	}
	port := &Port{
		parent:     n,
		shortName:  name,
		uniqueName: n.uniqueName + "_" + name,
		dtype:      t,
		visible:    true,
	}
	n.outputs[name] = port
	n.portOrder = append(n.portOrder, name)
	return port
}

func (n *Node) removeOutputPort(name string) {
	if _, ok := n.outputs[name]; !ok {
		return
	}
	delete(n.outputs, name)
	for i, pn := range n.portOrder {
		if pn == name {
			n.portOrder = append(n.portOrder[:i], n.portOrder[i+1:]...)
			break
		}
	}
}

// refreshOwnership re-establishes parent pointers and parent ids after a
// clone or an id change.
func (n *Node) refreshOwnership() {
	for _, port := range n.outputs {
		port.parent = n
	}
	for _, p := range n.parameters {
		p.parentID = n.id
	}
}

// Clone returns a deep copy of the node. Ids, the unique name, and link
// sources are copied verbatim; inserting the clone into a model reassigns
// the ids and the unique name and keeps the sources.
func (n *Node) Clone() *Node {
	out := newNode(n.kind, n.category)
	out.id = n.id
	out.uniqueName = n.uniqueName
	out.displayName = n.displayName
	out.tag = n.tag
	out.order = n.order
	out.position = n.position
	out.ruleType = n.ruleType
	out.functionID = n.functionID
	out.typeRules = make([]TypeRule, len(n.typeRules))
	copy(out.typeRules, n.typeRules)

	for _, name := range n.paramOrder {
		out.parameters[name] = n.parameters[name].clone()
		out.paramOrder = append(out.paramOrder, name)
	}
	for _, name := range n.portOrder {
		src := n.outputs[name]
		port := *src
		out.outputs[name] = &port
		out.portOrder = append(out.portOrder, name)
	}
	out.refreshOwnership()
	return out
}

// applyTypeRule rewrites the node's declared parameter and port types to
// what the rule pins, preserving sources and flags on retyped parameters.
// TypeAny entries in the input pattern leave the parameter type untouched.
func (n *Node) applyTypeRule(rule TypeRule) {
	for name, expected := range rule.Input {
		existing, ok := n.parameters[name]
		switch {
		case !ok:
			if expected != TypeAny {
				n.AddInput(name, expected)
			}
		case expected == TypeAny:
			// unconstrained input, keep as declared
		case existing.dtype != expected:
			n.parameters[name] = existing.retype(expected)
		}
	}

	for name, expected := range rule.Output {
		n.AddOutputPort(name, expected)
	}

	n.ruleType = rule.Type
	n.refreshOwnership()
}

// observedInputTypes infers each parameter's incoming type: the type of
// its source port, or TypeAny while unlinked.
func (n *Node) observedInputTypes(m *Model) map[string]DataType {
	observed := make(map[string]DataType, len(n.parameters))
	for _, name := range n.paramOrder {
		p := n.parameters[name]
		if src := p.Source(); src != nil {
			if port, ok := m.GetPort(src.PortID); ok {
				observed[name] = port.Type()
				continue
			}
		}
		observed[name] = TypeAny
	}
	return observed
}

// ruleMatches tests pattern equality: same key set, each pattern entry
// equal to the observed type with TypeAny matching anything on either
// side.
func ruleMatches(rule TypeRule, observed map[string]DataType) bool {
	if len(rule.Input) != len(observed) {
		return false
	}
	for name, pattern := range rule.Input {
		got, ok := observed[name]
		if !ok {
			return false
		}
		if pattern == TypeAny || got == TypeAny {
			continue
		}
		if pattern != got {
			return false
		}
	}
	return true
}

// ruleMatchesPartially is the fallback for rules whose input size differs
// from the observed set: at least one concrete observed input must agree
// with the pattern.
func ruleMatchesPartially(rule TypeRule, observed map[string]DataType) bool {
	for name, pattern := range rule.Input {
		got, ok := observed[name]
		if !ok || got == TypeAny || pattern == TypeAny {
			continue
		}
		if pattern == got {
			return true
		}
	}
	return false
}

// ResolveTypes selects and applies the first type rule matching the
// node's observed input types (rule declaration order is significant).
// Returns false when no rule matches; the node then keeps its last
// applied rule and the validator reports the mismatch.
func (n *Node) ResolveTypes(m *Model) bool {
	if len(n.typeRules) == 0 {
		return true
	}

	observed := n.observedInputTypes(m)
	for _, rule := range n.typeRules {
		if ruleMatches(rule, observed) {
			n.applyTypeRule(rule)
			m.refreshSources(n)
			return true
		}
	}
	for _, rule := range n.typeRules {
		if len(rule.Input) != len(observed) && ruleMatchesPartially(rule, observed) {
			n.applyTypeRule(rule)
			m.refreshSources(n)
			return true
		}
	}
	return false
}

// FunctionID returns the cached callee reference of a FunctionCall node.
func (n *Node) FunctionID() ResourceID { return n.functionID }

// SetFunctionID pins the callee reference and mirrors it into the
// functionId parameter's literal.
func (n *Node) SetFunctionID(id ResourceID) {
	n.functionID = id
	if p := n.parameters[FieldFunctionID]; p != nil {
		p.SetValue(ResourceIDValue(id))
	}
}

// ResolveFunctionID determines the callee of a FunctionCall node, either
// from the functionId parameter's source (a Resource node) or from its
// literal value.
func (n *Node) ResolveFunctionID(m *Model) error {
	p := n.parameters[FieldFunctionID]
	if p == nil {
		return fmt.Errorf("node %s has no %s parameter", n.UniqueName(), FieldFunctionID)
	}

	src := p.Source()
	if src == nil {
		if id, ok := p.Value().ResourceID(); ok {
			n.functionID = id
		}
		return nil
	}

	port, ok := m.GetPort(src.PortID)
	if !ok || port.Parent() == nil {
		return fmt.Errorf("the functionId of the function call %s needs the value of a Resource node as an input", n.DisplayName())
	}
	resParam := port.Parent().Parameter(FieldResourceID)
	if resParam == nil {
		return fmt.Errorf("the functionId of the function call %s needs the value of a Resource node as an input", n.DisplayName())
	}
	if id, ok := resParam.Value().ResourceID(); ok {
		n.functionID = id
	}
	return nil
}

// UpdateInputsAndOutputs mirrors a callee's signature onto a FunctionCall
// node: one input parameter per Begin output, one output port per End
// input. Stale entries from a previous signature are dropped; the
// functionId parameter always survives.
func (n *Node) UpdateInputsAndOutputs(callee *Model) {
	begin := callee.BeginNode()
	end := callee.EndNode()
	if begin == nil || end == nil {
		return
	}

	wantInputs := map[string]struct{}{FieldFunctionID: {}}
	begin.Outputs(func(name string, port *Port) bool {
		wantInputs[name] = struct{}{}
		if existing := n.parameters[name]; existing == nil || existing.Type() != port.Type() {
			n.AddInput(name, port.Type())
		}
		return true
	})
	for _, name := range n.ParameterNames() {
		if _, ok := wantInputs[name]; !ok {
			n.removeInput(name)
		}
	}

	wantOutputs := map[string]struct{}{}
	end.Parameters(func(name string, p *Parameter) bool {
		wantOutputs[name] = struct{}{}
		n.AddOutputPort(name, p.Type())
		return true
	})
	for _, name := range n.OutputNames() {
		if _, ok := wantOutputs[name]; !ok {
			n.removeOutputPort(name)
		}
	}
	n.refreshOwnership()
}
