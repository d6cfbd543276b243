package nodes

import (
	"fmt"
	"strings"
	"testing"
)

// childModel builds a function computing shape = pos.x.
func childModel(t *testing.T, id ResourceID) *Model {
	t.Helper()
	m := NewModel(id, fmt.Sprintf("child_%d", id))
	m.CreateBeginEnd()

	decompose := mustCreate(t, m, KindDecomposeVector)
	pos := m.BeginNode().FindOutputPort(FieldPos)
	if !m.AddLink(pos.ID(), decompose.Parameter(FieldA).ID(), false) {
		t.Fatal("linking pos to decompose failed")
	}
	if !m.AddLink(decompose.FindOutputPort(FieldX).ID(), m.EndNode().Parameter(FieldShape).ID(), false) {
		t.Fatal("linking x to shape failed")
	}
	return m
}

// callInto inserts a FunctionCall to callee into m, feeding the callee's
// pos from m's Begin.
func callInto(t *testing.T, m *Model, callee *Model) *Node {
	t.Helper()
	call := mustCreate(t, m, KindFunctionCall)
	call.UpdateInputsAndOutputs(callee)
	call.SetFunctionID(callee.ResourceID())
	m.registerNode(call)

	pos := m.BeginNode().FindOutputPort(FieldPos)
	if !m.AddLink(pos.ID(), call.Parameter(FieldPos).ID(), false) {
		t.Fatal("linking pos into call failed")
	}
	return call
}

func countKind(m *Model, kind NodeKind) int {
	count := 0
	for _, n := range m.NodesByID() {
		if n.Kind() == kind {
			count++
		}
	}
	return count
}

func TestFlatten_InlinesCall(t *testing.T) {
	child := childModel(t, 2)

	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	call := callInto(t, entry, child)
	if !entry.AddLink(call.FindOutputPort(FieldShape).ID(), entry.EndNode().Parameter(FieldShape).ID(), false) {
		t.Fatal("linking call output to entry shape failed")
	}

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(child)

	flat, err := NewFlattener(assembly).Flatten()
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}

	result := flat.AssemblyModel()
	if countKind(result, KindFunctionCall) != 0 {
		t.Error("flattened model must contain no FunctionCall")
	}
	if countKind(result, KindDecomposeVector) != 1 {
		t.Error("the callee's DecomposeVector must be inlined")
	}
	if flat.Len() != 1 {
		t.Errorf("assembly must keep only the entry model, has %d", flat.Len())
	}

	// End.shape must now be fed by the inlined decompose's x port
	src := result.EndNode().Parameter(FieldShape).Source()
	if src == nil {
		t.Fatal("entry shape lost its source")
	}
	if src.ShortName != FieldX {
		t.Errorf("shape source port = %q, want %q", src.ShortName, FieldX)
	}
	producer, ok := result.GetNode(src.NodeID)
	if !ok || producer.Kind() != KindDecomposeVector {
		t.Error("shape must be produced by the inlined DecomposeVector")
	}

	// and the inlined decompose reads the entry's own pos
	decomposeSrc := producer.Parameter(FieldA).Source()
	if decomposeSrc == nil || decomposeSrc.NodeID != result.BeginNode().ID() {
		t.Error("inlined node must read the entry Begin's pos")
	}
}

func TestFlatten_LeavesInputUntouched(t *testing.T) {
	child := childModel(t, 2)
	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	call := callInto(t, entry, child)
	entry.AddLink(call.FindOutputPort(FieldShape).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(child)

	if _, err := NewFlattener(assembly).Flatten(); err != nil {
		t.Fatalf("Flatten error = %v", err)
	}

	if assembly.Len() != 2 {
		t.Error("the input assembly must not be modified")
	}
	if countKind(assembly.AssemblyModel(), KindFunctionCall) != 1 {
		t.Error("the input entry model must keep its call")
	}
}

func TestFlatten_DeadCallPruned(t *testing.T) {
	child := childModel(t, 2)

	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	callInto(t, entry, child) // outputs unconsumed

	// the entry's own shape comes from a constant
	c := mustCreate(t, entry, KindConstantScalar)
	entry.AddLink(c.FindOutputPort(FieldValue).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(child)

	flat, err := NewFlattener(assembly).Flatten()
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}

	result := flat.AssemblyModel()
	if countKind(result, KindFunctionCall) != 0 {
		t.Error("dead call must be removed")
	}
	if countKind(result, KindDecomposeVector) != 0 {
		t.Error("dead call must not be inlined")
	}
	if flat.Len() != 1 {
		t.Error("sub-models must be removed")
	}
	if src := result.EndNode().Parameter(FieldShape).Source(); src == nil {
		t.Error("the entry's own wiring must survive")
	}
}

func TestFlatten_NoCallsIsNoop(t *testing.T) {
	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	c := mustCreate(t, entry, KindConstantScalar)
	entry.AddLink(c.FindOutputPort(FieldValue).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)

	flat, err := NewFlattener(assembly).Flatten()
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	if flat.AssemblyModel().NodeCount() != entry.NodeCount() {
		t.Error("flattening a flat model must only re-order")
	}
}

func TestFlatten_MissingCallInputFails(t *testing.T) {
	child := childModel(t, 2)

	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	call := mustCreate(t, entry, KindFunctionCall)
	call.UpdateInputsAndOutputs(child)
	call.SetFunctionID(child.ResourceID())
	entry.registerNode(call)
	// pos argument left unconnected
	entry.AddLink(call.FindOutputPort(FieldShape).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(child)

	_, err := NewFlattener(assembly).Flatten()
	if err == nil {
		t.Fatal("flatten should fail on unconnected call input")
	}
	if !strings.Contains(err.Error(), "has no source") {
		t.Errorf("error = %q, want a no-source message", err)
	}
}

func TestFlatten_SelfReferenceFails(t *testing.T) {
	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	call := callInto(t, entry, entry)
	call.SetFunctionID(entry.ResourceID())
	entry.AddLink(call.FindOutputPort(FieldShape).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)

	_, err := NewFlattener(assembly).Flatten()
	if err == nil {
		t.Fatal("flatten should fail on self reference")
	}
	if !strings.Contains(err.Error(), "references itself") {
		t.Errorf("error = %q, want a self-reference message", err)
	}
}

func TestFlatten_DepthCapExceeded(t *testing.T) {
	const chainLength = 120

	assembly := NewAssembly()
	models := make([]*Model, chainLength)
	for i := 0; i < chainLength; i++ {
		models[i] = NewModel(ResourceID(i+1), fmt.Sprintf("fn_%d", i+1))
		models[i].CreateBeginEnd()
	}

	// the last one computes something real; everyone else calls the next
	last := models[chainLength-1]
	decompose := mustCreate(t, last, KindDecomposeVector)
	last.AddLink(last.BeginNode().FindOutputPort(FieldPos).ID(), decompose.Parameter(FieldA).ID(), false)
	last.AddLink(decompose.FindOutputPort(FieldX).ID(), last.EndNode().Parameter(FieldShape).ID(), false)

	for i := chainLength - 2; i >= 0; i-- {
		call := callInto(t, models[i], models[i+1])
		models[i].AddLink(call.FindOutputPort(FieldShape).ID(), models[i].EndNode().Parameter(FieldShape).ID(), false)
	}
	for _, m := range models {
		_ = assembly.AddModel(m)
	}

	_, err := NewFlattener(assembly).Flatten()
	if err == nil {
		t.Fatal("flatten should fail beyond the depth cap")
	}
	if !strings.Contains(err.Error(), "Flattening depth of") || !strings.Contains(err.Error(), "exceeded") {
		t.Errorf("error = %q, want the depth message", err)
	}
}

func TestFlatten_NestedCallsInlineTransitively(t *testing.T) {
	inner := childModel(t, 3)

	middle := NewModel(2, "middle")
	middle.CreateBeginEnd()
	midCall := callInto(t, middle, inner)
	middle.AddLink(midCall.FindOutputPort(FieldShape).ID(), middle.EndNode().Parameter(FieldShape).ID(), false)

	entry := NewModel(1, "entry")
	entry.CreateBeginEnd()
	call := callInto(t, entry, middle)
	entry.AddLink(call.FindOutputPort(FieldShape).ID(), entry.EndNode().Parameter(FieldShape).ID(), false)

	assembly := NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(middle)
	_ = assembly.AddModel(inner)

	flat, err := NewFlattener(assembly).Flatten()
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}

	result := flat.AssemblyModel()
	if countKind(result, KindFunctionCall) != 0 {
		t.Error("no calls may remain after nested inlining")
	}
	if countKind(result, KindDecomposeVector) != 1 {
		t.Errorf("exactly one inlined DecomposeVector expected, got %d",
			countKind(result, KindDecomposeVector))
	}
	if src := result.EndNode().Parameter(FieldShape).Source(); src == nil {
		t.Error("entry shape must stay wired after nested inlining")
	}
}
