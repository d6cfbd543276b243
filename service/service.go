package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldforge/fieldforge/expr"
	"github.com/fieldforge/fieldforge/graphio"
	"github.com/fieldforge/fieldforge/nodes"
)

// Result is the uniform envelope of every operation.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func ok(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

func fail(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

func failWith(data map[string]any, format string, args ...any) Result {
	return Result{Data: data, Error: fmt.Sprintf(format, args...)}
}

// GraphService is the synchronous operation surface over one document.
// Calls are linearizable under a single logical owner; the service adds
// no locking of its own.
type GraphService struct {
	doc      *Document
	logger   *slog.Logger
	handlers []EventHandler
}

// NewGraphService wraps a document.
func NewGraphService(doc *Document, logger *slog.Logger) *GraphService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphService{doc: doc, logger: logger}
}

// Document returns the wrapped document.
func (s *GraphService) Document() *Document { return s.doc }

// AddEventHandler registers a telemetry sink for operation events.
func (s *GraphService) AddEventHandler(h EventHandler) {
	s.handlers = append(s.handlers, h)
}

// run wraps an operation body with event emission.
func (s *GraphService) run(op string, model uint32, body func() Result) Result {
	s.emit(Event{Kind: EventOpStarted, Op: op, DocumentID: s.doc.ID().String(), Model: model, At: time.Now()})
	result := body()
	kind := EventOpFinished
	if !result.Success {
		kind = EventOpFailed
		s.logger.Debug("operation failed", "op", op, "error", result.Error)
	}
	s.emit(Event{Kind: kind, Op: op, DocumentID: s.doc.ID().String(), Model: model, Err: result.Error, At: time.Now()})
	return result
}

func (s *GraphService) emit(e Event) {
	for _, h := range s.handlers {
		h.Handle(e)
	}
}

func (s *GraphService) model(functionID uint32) (*nodes.Model, Result) {
	m := s.doc.Assembly().FindModel(nodes.ResourceID(functionID))
	if m == nil {
		return nil, fail("function %d not found", functionID)
	}
	return m, Result{}
}

// ListFunctions returns the display names of every function in the
// assembly.
func (s *GraphService) ListFunctions() Result {
	return s.run("list_functions", 0, func() Result {
		var functions []map[string]any
		s.doc.Assembly().Functions(func(m *nodes.Model) bool {
			functions = append(functions, map[string]any{
				"id":           uint32(m.ResourceID()),
				"display_name": m.DisplayName(),
			})
			return true
		})
		return ok(map[string]any{"functions": functions})
	})
}

// GetFunctionGraph returns the minimal JSON projection of one function.
func (s *GraphService) GetFunctionGraph(functionID uint32) Result {
	return s.run("get_function_graph", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		return ok(map[string]any{"graph": graphio.SerializeMinimal(m)})
	})
}

// SetFunctionGraph imports a minimal-schema graph into one function.
func (s *GraphService) SetFunctionGraph(functionID uint32, graph graphio.Graph, replace bool) Result {
	return s.run("set_function_graph", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		applied, err := graphio.Apply(m, graph, replace)
		if err != nil {
			return fail("import failed: %v", err)
		}
		return ok(map[string]any{"id_map": applied.IDMap})
	})
}

// GetNodeInfo returns one node's kind, display name, and simplified
// inputs and outputs.
func (s *GraphService) GetNodeInfo(functionID, nodeID uint32) Result {
	return s.run("get_node_info", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		n, found := m.GetNode(nodes.NodeID(nodeID))
		if !found {
			return fail("node %d not found in function %d", nodeID, functionID)
		}
		return ok(nodeInfo(n))
	})
}

func nodeInfo(n *nodes.Node) map[string]any {
	var inputs []map[string]any
	n.Parameters(func(name string, p *nodes.Parameter) bool {
		inputs = append(inputs, map[string]any{
			"name":      name,
			"type":      p.Type().String(),
			"connected": p.Source() != nil,
			"required":  p.InputSourceRequired(),
		})
		return true
	})
	var outputs []map[string]any
	n.Outputs(func(name string, port *nodes.Port) bool {
		outputs = append(outputs, map[string]any{
			"name": name,
			"type": port.Type().String(),
		})
		return true
	})
	return map[string]any{
		"id":           uint32(n.ID()),
		"type":         string(n.Kind()),
		"display_name": n.DisplayName(),
		"inputs":       inputs,
		"outputs":      outputs,
	}
}

// CreateNode inserts a node of the named kind. An unknown kind fails and
// reports the list of valid types.
func (s *GraphService) CreateNode(functionID uint32, nodeType, displayName string) Result {
	return s.run("create_node", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		if !nodes.IsKnownKind(nodes.NodeKind(nodeType)) {
			kinds := nodes.KnownKinds()
			valid := make([]string, len(kinds))
			for i, k := range kinds {
				valid[i] = string(k)
			}
			return failWith(map[string]any{"valid_types": valid}, "unknown node type %q", nodeType)
		}
		n, err := m.Create(nodes.NodeKind(nodeType))
		if err != nil {
			return fail("creating node: %v", err)
		}
		if displayName != "" {
			n.SetDisplayName(displayName)
		}
		m.UpdateGraphAndOrderIfNeeded()
		return ok(nodeInfo(n))
	})
}

// DeleteNode removes a node and every link it takes part in.
func (s *GraphService) DeleteNode(functionID, nodeID uint32) Result {
	return s.run("delete_node", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		if !m.Remove(nodes.NodeID(nodeID)) {
			return fail("node %d not found in function %d", nodeID, functionID)
		}
		return ok(nil)
	})
}

// SetParameterValue assigns a literal, decoding the JSON value per the
// parameter's declared type.
func (s *GraphService) SetParameterValue(functionID, nodeID uint32, parameterName string, value any) Result {
	return s.run("set_parameter_value", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		n, found := m.GetNode(nodes.NodeID(nodeID))
		if !found {
			return fail("node %d not found in function %d", nodeID, functionID)
		}
		p := n.Parameter(parameterName)
		if p == nil {
			return fail("parameter %q not found on node %q", parameterName, n.DisplayName())
		}
		decoded, okDecode := graphio.DecodeValue(p.Type(), value)
		if !okDecode {
			return fail("value %v cannot be decoded as %s", value, p.Type())
		}
		p.SetValue(decoded)
		return ok(nil)
	})
}

// CreateLink connects a named source port to a named target parameter.
// On failure the current list of unconnected required inputs of the
// function is returned for context.
func (s *GraphService) CreateLink(functionID, srcNodeID uint32, srcPort string, tgtNodeID uint32, tgtParam string) Result {
	return s.run("create_link", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		src, found := m.GetNode(nodes.NodeID(srcNodeID))
		if !found {
			return fail("source node %d not found", srcNodeID)
		}
		tgt, found := m.GetNode(nodes.NodeID(tgtNodeID))
		if !found {
			return fail("target node %d not found", tgtNodeID)
		}
		port := src.FindOutputPort(srcPort)
		if port == nil {
			return fail("port %q not found on node %q", srcPort, src.DisplayName())
		}
		param := tgt.Parameter(tgtParam)
		if param == nil {
			return fail("parameter %q not found on node %q", tgtParam, tgt.DisplayName())
		}
		if !m.AddLink(port.ID(), param.ID(), false) {
			return failWith(map[string]any{"unconnected_inputs": unconnectedInputs(m)},
				"cannot link %s.%s to %s.%s: type mismatch or cycle",
				src.DisplayName(), srcPort, tgt.DisplayName(), tgtParam)
		}
		m.UpdateTypes()
		return ok(nil)
	})
}

func unconnectedInputs(m *nodes.Model) []map[string]any {
	var out []map[string]any
	for _, n := range m.NodesByID() {
		if nodes.IsExemptFromInputValidation(n.Kind()) {
			continue
		}
		n.Parameters(func(name string, p *nodes.Parameter) bool {
			if p.Source() == nil && p.InputSourceRequired() && !p.IsArgument() {
				out = append(out, map[string]any{
					"node":      n.DisplayName(),
					"node_id":   uint32(n.ID()),
					"parameter": name,
					"type":      p.Type().String(),
				})
			}
			return true
		})
	}
	return out
}

// DeleteLink removes the link feeding one target parameter.
func (s *GraphService) DeleteLink(functionID, tgtNodeID uint32, tgtParam string) Result {
	return s.run("delete_link", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		tgt, found := m.GetNode(nodes.NodeID(tgtNodeID))
		if !found {
			return fail("target node %d not found", tgtNodeID)
		}
		param := tgt.Parameter(tgtParam)
		if param == nil {
			return fail("parameter %q not found on node %q", tgtParam, tgt.DisplayName())
		}
		src := param.Source()
		if src == nil {
			return fail("parameter %q of node %q has no link", tgtParam, tgt.DisplayName())
		}
		m.RemoveLink(src.PortID, param.ID())
		return ok(nil)
	})
}

// CreateFunctionCallNode inserts a Resource node carrying the referenced
// function id, a FunctionCall wired to it, and mirrors the callee's
// signature onto the call.
func (s *GraphService) CreateFunctionCallNode(targetFunctionID, referencedFunctionID uint32, displayName string) Result {
	return s.run("create_function_call_node", targetFunctionID, func() Result {
		m, errRes := s.model(targetFunctionID)
		if m == nil {
			return errRes
		}
		referenced := s.doc.Assembly().FindModel(nodes.ResourceID(referencedFunctionID))
		if referenced == nil {
			return fail("referenced function %d not found", referencedFunctionID)
		}
		if referencedFunctionID == targetFunctionID {
			return fail("function %d cannot call itself", targetFunctionID)
		}

		resNode, err := m.Create(nodes.KindResource)
		if err != nil {
			return fail("creating resource node: %v", err)
		}
		resNode.Parameter(nodes.FieldResourceID).SetValue(nodes.ResourceIDValue(nodes.ResourceID(referencedFunctionID)))

		call, err := m.Create(nodes.KindFunctionCall)
		if err != nil {
			return fail("creating function call: %v", err)
		}
		if displayName != "" {
			call.SetDisplayName(displayName)
		}
		call.UpdateInputsAndOutputs(referenced)
		m.RegisterIO(call)
		call.SetFunctionID(nodes.ResourceID(referencedFunctionID))

		resPort := resNode.FindOutputPort(nodes.FieldValue)
		fnParam := call.Parameter(nodes.FieldFunctionID)
		if resPort == nil || fnParam == nil || !m.AddLink(resPort.ID(), fnParam.ID(), false) {
			return fail("could not wire resource node to function call")
		}
		m.UpdateGraphAndOrderIfNeeded()
		return ok(nodeInfo(call))
	})
}

// CreateFunctionFromExpression builds a new function from an arithmetic
// expression. On any failure the partially built model is discarded.
func (s *GraphService) CreateFunctionFromExpression(name, expression, outputType string, arguments []expr.Argument, outputName string) Result {
	return s.run("create_function_from_expression", 0, func() Result {
		if name == "" {
			return fail("function name must not be empty")
		}
		if outputName == "" {
			outputName = nodes.FieldShape
		}
		outKind, known := expr.KindFromString(outputType)
		if !known && outputType != "" {
			return fail("unknown output type %q", outputType)
		}

		// build into a detached model; register only on success
		m := nodes.NewModel(s.doc.Assembly().NextResourceID(), name)
		m.CreateBeginEnd()

		nodeID, err := expr.BuildFunction(m, expression, arguments, expr.Output{Name: outputName, Kind: outKind})
		if err != nil || nodeID == 0 {
			return fail("%v", err)
		}
		if err := s.doc.Assembly().AddModel(m); err != nil {
			return fail("registering function: %v", err)
		}
		return ok(map[string]any{
			"function_id": uint32(m.ResourceID()),
			"result_node": uint32(nodeID),
		})
	})
}

// CreateConstantsForMissingParameters inserts a constant node for every
// unconnected required input of the node and optionally links them.
func (s *GraphService) CreateConstantsForMissingParameters(functionID, nodeID uint32, autoConnect bool) Result {
	return s.run("create_constants_for_missing_parameters", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		n, found := m.GetNode(nodes.NodeID(nodeID))
		if !found {
			return fail("node %d not found in function %d", nodeID, functionID)
		}

		constantKinds := map[nodes.DataType]nodes.NodeKind{
			nodes.TypeFloat:      nodes.KindConstantScalar,
			nodes.TypeFloat3:     nodes.KindConstantVector,
			nodes.TypeMatrix4:    nodes.KindConstantMatrix,
			nodes.TypeResourceID: nodes.KindResource,
		}
		constantPorts := map[nodes.NodeKind]string{
			nodes.KindConstantScalar: nodes.FieldValue,
			nodes.KindConstantVector: nodes.FieldVector,
			nodes.KindConstantMatrix: nodes.FieldMatrix,
			nodes.KindResource:       nodes.FieldValue,
		}

		var created []map[string]any
		var failure Result
		n.Parameters(func(name string, p *nodes.Parameter) bool {
			if p.Source() != nil || !p.InputSourceRequired() || p.IsArgument() {
				return true
			}
			kind, supported := constantKinds[p.Type()]
			if !supported {
				return true
			}
			constant, err := m.Create(kind)
			if err != nil {
				failure = fail("creating constant for %q: %v", name, err)
				return false
			}
			constant.SetDisplayName(n.DisplayName() + "_" + name)
			if autoConnect {
				port := constant.FindOutputPort(constantPorts[kind])
				if port == nil || !m.AddLink(port.ID(), p.ID(), false) {
					failure = fail("could not connect constant to %q", name)
					return false
				}
			}
			created = append(created, map[string]any{
				"parameter": name,
				"node_id":   uint32(constant.ID()),
				"type":      string(kind),
			})
			return true
		})
		if failure.Error != "" {
			return failure
		}
		m.UpdateGraphAndOrderIfNeeded()
		return ok(map[string]any{"created": created})
	})
}

// RemoveUnusedNodes deletes every node that does not transitively feed an
// End input. The Begin node is always kept.
func (s *GraphService) RemoveUnusedNodes(functionID uint32) Result {
	return s.run("remove_unused_nodes", functionID, func() Result {
		m, errRes := s.model(functionID)
		if m == nil {
			return errRes
		}
		end := m.EndNode()
		if end == nil {
			return fail("function %d has no End node", functionID)
		}

		// walk the source chains backwards from End
		needed := map[nodes.NodeID]struct{}{end.ID(): {}}
		queue := []*nodes.Node{end}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			current.Parameters(func(_ string, p *nodes.Parameter) bool {
				src := p.Source()
				if src == nil {
					return true
				}
				if _, seen := needed[src.NodeID]; seen {
					return true
				}
				producer, found := m.GetNode(src.NodeID)
				if !found {
					return true
				}
				needed[src.NodeID] = struct{}{}
				queue = append(queue, producer)
				return true
			})
		}
		if begin := m.BeginNode(); begin != nil {
			needed[begin.ID()] = struct{}{}
		}

		var removed []uint32
		for _, n := range m.NodesByID() {
			if _, keep := needed[n.ID()]; !keep {
				removed = append(removed, uint32(n.ID()))
			}
		}
		for _, id := range removed {
			m.Remove(nodes.NodeID(id))
		}
		m.UpdateGraphAndOrderIfNeeded()
		return ok(map[string]any{"removed": removed})
	})
}

// ListChangeableParameters enumerates constant-node parameters across the
// assembly with their current values.
func (s *GraphService) ListChangeableParameters() Result {
	return s.run("list_changeable_parameters", 0, func() Result {
		constantKinds := map[nodes.NodeKind]struct{}{
			nodes.KindConstantScalar: {},
			nodes.KindConstantVector: {},
			nodes.KindConstantMatrix: {},
			nodes.KindResource:       {},
		}
		var params []map[string]any
		s.doc.Assembly().Functions(func(m *nodes.Model) bool {
			for _, n := range m.NodesByID() {
				if _, isConstant := constantKinds[n.Kind()]; !isConstant {
					continue
				}
				n.Parameters(func(name string, p *nodes.Parameter) bool {
					if !p.Modifiable() {
						return true
					}
					params = append(params, map[string]any{
						"function_id": uint32(m.ResourceID()),
						"node":        n.DisplayName(),
						"node_id":     uint32(n.ID()),
						"parameter":   name,
						"type":        p.Type().String(),
						"value":       p.Value().String(),
					})
					return true
				})
			}
			return true
		})
		return ok(map[string]any{"parameters": params})
	})
}

// ValidateOptions configures a ValidateModel run.
type ValidateOptions struct {
	Compile     bool
	MaxMessages int
}

// ValidateModel runs the validator (phase 1) and optionally a flatten as
// the downstream compile check (phase 2). Each phase reports its own
// verdict and messages.
func (s *GraphService) ValidateModel(opts ValidateOptions) Result {
	return s.run("validate_model", 0, func() Result {
		maxMessages := opts.MaxMessages
		if maxMessages <= 0 {
			maxMessages = 100
		}

		errors := s.doc.Validate()
		messages := make([]string, 0, len(errors))
		for i, e := range errors {
			if i >= maxMessages {
				break
			}
			messages = append(messages, e.String())
		}
		phase1 := map[string]any{
			"ok":       len(errors) == 0,
			"errors":   len(errors),
			"warnings": 0,
			"messages": messages,
		}
		data := map[string]any{"graph": phase1}

		if opts.Compile {
			phase2 := map[string]any{"ok": true, "errors": 0, "warnings": 0, "messages": []string{}}
			if _, err := s.doc.Flatten(); err != nil {
				phase2["ok"] = false
				phase2["errors"] = 1
				phase2["messages"] = []string{err.Error()}
			}
			data["compile"] = phase2
		}
		return ok(data)
	})
}
