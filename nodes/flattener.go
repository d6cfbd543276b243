package nodes

import "fmt"

// maxFlatteningDepth caps call-chain inlining against cyclic or
// pathological call graphs.
const maxFlatteningDepth = 100

// Flattener inlines every FunctionCall of an assembly's entry model,
// producing an assembly whose sole remaining model is self-contained and
// free of calls. The input assembly is never modified; on error the
// partial result is discarded.
type Flattener struct {
	assembly  *Assembly
	depth     int
	flattened map[ResourceID]struct{}
}

// NewFlattener prepares flattening over a deep copy of the assembly.
func NewFlattener(assembly *Assembly) *Flattener {
	return &Flattener{
		assembly:  assembly.Clone(),
		flattened: make(map[ResourceID]struct{}),
	}
}

// Flatten runs the inlining and returns the resulting assembly.
// Flattening an already-flat model is a no-op except for re-ordering.
func (f *Flattener) Flatten() (*Assembly, error) {
	entry := f.assembly.AssemblyModel()
	if entry == nil {
		return nil, ErrNoAssemblyModel
	}

	if err := f.flattenRecursive(entry); err != nil {
		return nil, err
	}

	f.deleteSubModels(entry)
	f.deleteFunctionCallNodes(entry)
	entry.UpdateGraphAndOrderIfNeeded()
	return f.assembly, nil
}

// flattenRecursive integrates every function call of the model, in the
// model's deterministic topological order.
func (f *Flattener) flattenRecursive(m *Model) error {
	if _, done := f.flattened[m.ResourceID()]; done {
		return nil
	}
	f.flattened[m.ResourceID()] = struct{}{}

	m.UpdateGraphAndOrderIfNeeded()

	var calls []NodeID
	for _, n := range m.NodesInOrder() {
		if n.Kind() == KindFunctionCall {
			calls = append(calls, n.ID())
		}
	}

	for _, id := range calls {
		call, ok := m.GetNode(id)
		if !ok {
			continue
		}
		if err := call.ResolveFunctionID(m); err != nil {
			return err
		}
		if err := f.integrateFunctionCall(call, m); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) integrateFunctionCall(call *Node, target *Model) error {
	// A call whose outputs feed nothing is dead; it is dropped with the
	// rest of the call nodes at the end.
	target.UpdateGraphAndOrderIfNeeded()
	used := false
	call.Outputs(func(_ string, port *Port) bool {
		if port.InUse() {
			used = true
			return false
		}
		return true
	})
	if !used {
		return nil
	}

	referenced := f.assembly.FindModel(call.FunctionID())
	if referenced == nil {
		return fmt.Errorf("Referenced function %d not found", call.FunctionID())
	}
	if referenced.ResourceID() == target.ResourceID() {
		return fmt.Errorf("Function %s references itself", referenced.DisplayName())
	}
	if f.depth > maxFlatteningDepth {
		return fmt.Errorf("Flattening depth of %s exceeded", referenced.DisplayName())
	}

	f.depth++
	err := f.integrateModel(referenced, target, call)
	f.depth--
	return err
}

// integrateModel clones every node of the referenced model except its
// Begin/End markers into the target, rewires the clones' inputs, and
// reroutes the call's consumers onto the clones.
func (f *Flattener) integrateModel(referenced, target *Model, call *Node) error {
	if referenced.ResourceID() == target.ResourceID() {
		return nil
	}

	// every argument of the call must be fed before inlining
	var missing error
	call.Parameters(func(name string, p *Parameter) bool {
		if name == FieldFunctionID {
			return true
		}
		if p.Source() == nil {
			missing = fmt.Errorf("Input %s of function call %s has no source", name, call.UniqueName())
			return false
		}
		return true
	})
	if missing != nil {
		return missing
	}

	// inner calls first, so the clone pass below copies a flat model
	if err := f.flattenRecursive(referenced); err != nil {
		return err
	}

	nameMapping := make(map[string]string) // old unique name -> new unique name
	var created []*Node
	originals := make(map[NodeID]*Node)

	for _, n := range referenced.NodesInOrder() {
		if n.Kind() == KindBegin || n.Kind() == KindEnd {
			continue
		}
		clone := n.Clone()
		inserted := target.Insert(clone)
		created = append(created, inserted)
		originals[inserted.ID()] = n
		nameMapping[n.UniqueName()] = inserted.UniqueName()
	}

	for _, n := range created {
		if err := f.rewireClonedInputs(n, referenced, target, call, nameMapping); err != nil {
			return err
		}
	}

	return f.rerouteOutputs(referenced, target, call, nameMapping)
}

// rewireClonedInputs replaces each cloned parameter's stale source (which
// still names ports of the referenced model) with the equivalent port of
// the target: the feed of the matching call argument when the original
// source was the callee's Begin, the cloned counterpart otherwise.
func (f *Flattener) rewireClonedInputs(n *Node, referenced, target *Model, call *Node, nameMapping map[string]string) error {
	var failure error
	n.Parameters(func(name string, p *Parameter) bool {
		src := p.Source()
		if src == nil {
			return true
		}
		originalPort, ok := referenced.GetPort(src.PortID)
		if !ok || originalPort.Parent() == nil {
			failure = fmt.Errorf("Source port %s not found", src.ShortName)
			return false
		}
		originNode := originalPort.Parent()
		shortName := originalPort.ShortName()
		p.setSource(nil)

		if originNode.Kind() == KindBegin {
			arg := call.Parameter(shortName)
			if arg == nil || arg.Source() == nil {
				failure = fmt.Errorf("Input %s has no source", shortName)
				return false
			}
			feed, ok := target.GetPort(arg.Source().PortID)
			if !ok {
				failure = fmt.Errorf("Port %d not found", arg.Source().PortID)
				return false
			}
			if !target.AddLink(feed.ID(), p.ID(), true) {
				failure = fmt.Errorf("could not wire input %s of %s", name, n.UniqueName())
				return false
			}
			return true
		}

		newName, ok := nameMapping[originNode.UniqueName()]
		if !ok {
			failure = fmt.Errorf("Source node %s not found", originNode.UniqueName())
			return false
		}
		newSourceNode, ok := target.FindNode(newName)
		if !ok {
			failure = fmt.Errorf("Source node %s not found", newName)
			return false
		}
		newSourcePort := newSourceNode.FindOutputPort(shortName)
		if newSourcePort == nil {
			failure = fmt.Errorf("Source port %s not found", shortName)
			return false
		}
		if !target.AddLink(newSourcePort.ID(), p.ID(), true) {
			failure = fmt.Errorf("could not wire input %s of %s", name, n.UniqueName())
			return false
		}
		return true
	})
	return failure
}

// rerouteOutputs relinks every target-side consumer of the call's output
// ports to the cloned producer that fed the matching End parameter inside
// the referenced model.
func (f *Flattener) rerouteOutputs(referenced, target *Model, call *Node, nameMapping map[string]string) error {
	end := referenced.EndNode()
	if end == nil {
		return fmt.Errorf("model %s has no End node", referenced.DisplayName())
	}

	var failure error
	call.Outputs(func(outputName string, callPort *Port) bool {
		var consumers []*Parameter
		target.Parameters(func(p *Parameter) bool {
			if src := p.Source(); src != nil && src.PortID == callPort.ID() {
				consumers = append(consumers, p)
			}
			return true
		})
		if len(consumers) == 0 {
			return true
		}

		endParam := end.Parameter(outputName)
		if endParam == nil {
			failure = fmt.Errorf("Output %s not found in end node", outputName)
			return false
		}
		endSource := endParam.Source()
		if endSource == nil {
			failure = fmt.Errorf("Parameter %s of node %s has no source", outputName, end.UniqueName())
			return false
		}
		producer, ok := referenced.GetNode(endSource.NodeID)
		if !ok {
			failure = fmt.Errorf("Parent node of output %s not found", outputName)
			return false
		}
		clonedName, ok := nameMapping[producer.UniqueName()]
		if !ok {
			failure = fmt.Errorf("Parent node of output %s not found", outputName)
			return false
		}
		clonedProducer, ok := target.FindNode(clonedName)
		if !ok {
			failure = fmt.Errorf("Parent node of output %s not found", outputName)
			return false
		}
		clonedPort := clonedProducer.FindOutputPort(endSource.ShortName)
		if clonedPort == nil {
			failure = fmt.Errorf("Output port %s not found", outputName)
			return false
		}

		for _, consumer := range consumers {
			target.RemoveLink(callPort.ID(), consumer.ID())
			if !target.AddLink(clonedPort.ID(), consumer.ID(), true) {
				failure = fmt.Errorf("could not reroute output %s", outputName)
				return false
			}
		}
		return true
	})
	return failure
}

// deleteSubModels drops every model besides the entry one.
func (f *Flattener) deleteSubModels(entry *Model) {
	for _, id := range f.assembly.ResourceIDs() {
		if id != entry.ResourceID() {
			f.assembly.DeleteModel(id)
		}
	}
}

// deleteFunctionCallNodes removes the now-consumerless call nodes.
func (f *Flattener) deleteFunctionCallNodes(entry *Model) {
	var calls []NodeID
	for _, n := range entry.NodesByID() {
		if n.Kind() == KindFunctionCall {
			calls = append(calls, n.ID())
		}
	}
	for _, id := range calls {
		entry.RemoveWithoutLinks(id)
	}
}
