package nodes

import (
	"errors"
	"fmt"
	"sort"
)

// Extraction errors.
var (
	ErrEmptySelection  = errors.New("selection is empty")
	ErrMarkerSelected  = errors.New("selection must not contain Begin or End")
	ErrUnknownSelected = errors.New("selection references unknown node")
)

// ExtractionResult reports how the extractor renamed things: which
// external port became which function argument, which internal port
// became which function output, and the inserted call site.
type ExtractionResult struct {
	FunctionCall  *Node
	InputNameMap  map[string]string // external port unique name -> argument name
	OutputNameMap map[string]string // internal port unique name -> output name
}

// externalInput is one boundary edge entering the selection.
type externalInput struct {
	targetParam     *Parameter
	targetParamName string
	externalPort    *Port
}

// externalOutput is one selected port consumed outside the selection.
type externalOutput struct {
	srcPort   *Port
	consumers []*Parameter
}

// ExtractFunction moves the selected nodes of source into destination as
// a new function and replaces them with a FunctionCall wired to the same
// neighbors, preserving evaluation semantics. destination is cleared and
// receives fresh Begin/End markers.
func ExtractFunction(source, destination *Model, selection map[NodeID]struct{}) (*ExtractionResult, error) {
	if len(selection) == 0 {
		return nil, ErrEmptySelection
	}
	for id := range selection {
		n, ok := source.GetNode(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownSelected, id)
		}
		if n.Kind() == KindBegin || n.Kind() == KindEnd {
			return nil, ErrMarkerSelected
		}
	}

	selected := sortedSelection(selection)

	extInputs, extOutputs, outputOrder := classifyBoundary(source, selection, selected)

	destination.Clear()
	destination.CreateBeginEnd()

	// clone the selection; the clones start unwired and are relinked
	// from the originals' sources below
	cloneMap := make(map[NodeID]*Node, len(selected))
	for _, id := range selected {
		original, _ := source.GetNode(id)
		clone := original.Clone()
		clone.Parameters(func(_ string, p *Parameter) bool {
			p.setSource(nil)
			return true
		})
		cloneMap[id] = destination.Insert(clone)
	}

	relinkIntraSelection(source, destination, selection, selected, cloneMap)

	result := &ExtractionResult{
		InputNameMap:  make(map[string]string),
		OutputNameMap: make(map[string]string),
	}

	argNames := createFunctionArguments(destination, extInputs, cloneMap)
	createFunctionOutputs(destination, extOutputs, outputOrder, cloneMap, result)

	// the End of an extracted function exposes only the extracted outputs;
	// the default shape output of CreateBeginEnd goes unless one took its name
	if end := destination.EndNode(); end != nil {
		if p := end.Parameter(FieldShape); p != nil && p.Source() == nil {
			end.removeInput(FieldShape)
			destination.registerNode(end)
		}
	}

	destination.BeginNode().refreshOwnership()
	destination.EndNode().refreshOwnership()
	destination.UpdateGraphAndOrderIfNeeded()
	destination.UpdateTypes()

	// call site in the source
	call, err := source.Create(KindFunctionCall)
	if err != nil {
		return nil, err
	}
	result.FunctionCall = call
	call.UpdateInputsAndOutputs(destination)
	source.registerNode(call)
	if destination.ResourceID() != 0 {
		call.SetFunctionID(destination.ResourceID())
	}

	// wire original external producers into the call's arguments
	for _, ext := range extInputs {
		argName := argNames[ext.externalPort.UniqueName()]
		arg := call.Parameter(argName)
		if arg == nil {
			continue
		}
		source.AddLink(ext.externalPort.ID(), arg.ID(), true)
		result.InputNameMap[ext.externalPort.UniqueName()] = argName
	}

	// replace external consumers' links with the call's outputs
	for _, uname := range outputOrder {
		info := extOutputs[uname]
		outName := result.OutputNameMap[uname]
		outPort := call.FindOutputPort(outName)
		if outPort == nil {
			continue
		}
		for _, consumer := range info.consumers {
			if src := consumer.Source(); src != nil {
				source.RemoveLink(src.PortID, consumer.ID())
			}
			source.AddLink(outPort.ID(), consumer.ID(), true)
		}
	}

	for _, id := range selected {
		source.Remove(id)
	}

	source.UpdateGraphAndOrderIfNeeded()
	source.UpdateTypes()
	return result, nil
}

func sortedSelection(selection map[NodeID]struct{}) []NodeID {
	out := make([]NodeID, 0, len(selection))
	for id := range selection {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// classifyBoundary records edges crossing the selection border in both
// directions. outputOrder keeps the externally consumed ports in a
// deterministic order.
func classifyBoundary(source *Model, selection map[NodeID]struct{}, selected []NodeID) ([]externalInput, map[string]*externalOutput, []string) {
	var extInputs []externalInput
	extOutputs := make(map[string]*externalOutput)
	var outputOrder []string

	for _, id := range selected {
		node, _ := source.GetNode(id)

		node.Parameters(func(name string, p *Parameter) bool {
			src := p.Source()
			if src == nil {
				return true
			}
			port, ok := source.GetPort(src.PortID)
			if !ok {
				return true
			}
			if _, inside := selection[port.ParentID()]; !inside {
				extInputs = append(extInputs, externalInput{
					targetParam:     p,
					targetParamName: name,
					externalPort:    port,
				})
			}
			return true
		})

		node.Outputs(func(_ string, port *Port) bool {
			var consumers []*Parameter
			source.Parameters(func(p *Parameter) bool {
				src := p.Source()
				if src == nil || src.PortID != port.ID() {
					return true
				}
				if _, inside := selection[p.ParentID()]; !inside {
					consumers = append(consumers, p)
				}
				return true
			})
			if len(consumers) > 0 {
				extOutputs[port.UniqueName()] = &externalOutput{srcPort: port, consumers: consumers}
				outputOrder = append(outputOrder, port.UniqueName())
			}
			return true
		})
	}
	return extInputs, extOutputs, outputOrder
}

// relinkIntraSelection re-creates every link whose two ends were both
// selected, resolving the cloned source port by short name.
func relinkIntraSelection(source, destination *Model, selection map[NodeID]struct{}, selected []NodeID, cloneMap map[NodeID]*Node) {
	for _, id := range selected {
		original, _ := source.GetNode(id)
		clone := cloneMap[id]
		original.Parameters(func(name string, p *Parameter) bool {
			src := p.Source()
			if src == nil {
				return true
			}
			srcPort, ok := source.GetPort(src.PortID)
			if !ok {
				return true
			}
			srcNodeID := srcPort.ParentID()
			if _, inside := selection[srcNodeID]; !inside {
				return true // becomes a function argument
			}
			clonedSrc := cloneMap[srcNodeID].FindOutputPort(srcPort.ShortName())
			clonedTarget := clone.Parameter(name)
			if clonedSrc != nil && clonedTarget != nil {
				destination.AddLink(clonedSrc.ID(), clonedTarget.ID(), true)
			}
			return true
		})
	}
}

// createFunctionArguments deduplicates external producers by port unique
// name, exposes one Begin output per producer, and feeds the cloned
// consumers from it. "pos" is reserved for the evaluation position.
func createFunctionArguments(destination *Model, extInputs []externalInput, cloneMap map[NodeID]*Node) map[string]string {
	argNames := make(map[string]string)
	used := map[string]struct{}{FieldPos: {}}
	begin := destination.BeginNode()

	for _, ext := range extInputs {
		uname := ext.externalPort.UniqueName()
		if _, ok := argNames[uname]; ok {
			continue
		}
		base := ext.externalPort.ShortName()
		if base == "" {
			base = "arg"
		}
		argName := uniqueName(base, used)
		argNames[uname] = argName
		begin.AddOutputPort(argName, ext.externalPort.Type())
		destination.registerNode(begin)
	}

	for _, ext := range extInputs {
		argName := argNames[ext.externalPort.UniqueName()]
		clonedNode, ok := cloneMap[ext.targetParam.ParentID()]
		if !ok {
			continue
		}
		clonedParam := clonedNode.Parameter(ext.targetParamName)
		beginPort := begin.FindOutputPort(argName)
		if clonedParam != nil && beginPort != nil {
			destination.AddLink(beginPort.ID(), clonedParam.ID(), true)
		}
	}
	return argNames
}

// createFunctionOutputs exposes each externally consumed internal port as
// a named End input linked from its cloned producer.
func createFunctionOutputs(destination *Model, extOutputs map[string]*externalOutput, outputOrder []string, cloneMap map[NodeID]*Node, result *ExtractionResult) {
	used := make(map[string]struct{})
	for _, uname := range outputOrder {
		info := extOutputs[uname]
		base := info.srcPort.ShortName()
		if base == "" {
			base = "out"
		}
		outName := uniqueName(base, used)
		result.OutputNameMap[uname] = outName

		endParam, err := destination.AddFunctionOutput(outName, ZeroValue(info.srcPort.Type()))
		if err != nil {
			continue
		}
		clonedSrcNode, ok := cloneMap[info.srcPort.ParentID()]
		if !ok {
			continue
		}
		clonedOut := clonedSrcNode.FindOutputPort(info.srcPort.ShortName())
		if clonedOut != nil {
			destination.AddLink(clonedOut.ID(), endParam.ID(), true)
		}
	}
}

// uniqueName disambiguates base against used with a numeric suffix.
func uniqueName(base string, used map[string]struct{}) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	used[name] = struct{}{}
	return name
}
