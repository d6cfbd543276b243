package nodes

import (
	"testing"

	"github.com/fieldforge/fieldforge/dirgraph"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel(1, "test")
	m.CreateBeginEnd()
	return m
}

func mustCreate(t *testing.T, m *Model, kind NodeKind) *Node {
	t.Helper()
	n, err := m.Create(kind)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", kind, err)
	}
	return n
}

func TestNewModel_BeginEnd(t *testing.T) {
	m := newTestModel(t)

	begin := m.BeginNode()
	if begin == nil {
		t.Fatal("model has no Begin node")
	}
	if begin.FindOutputPort(FieldPos) == nil {
		t.Error("Begin should expose a pos port")
	}
	if got := begin.FindOutputPort(FieldPos).Type(); got != TypeFloat3 {
		t.Errorf("pos type = %v, want %v", got, TypeFloat3)
	}

	end := m.EndNode()
	if end == nil {
		t.Fatal("model has no End node")
	}
	if end.Parameter(FieldShape) == nil {
		t.Error("End should expose a shape parameter")
	}
}

func TestModel_Create_UnknownKind(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.Create(NodeKind("Nope")); err == nil {
		t.Error("Create with unknown kind should fail")
	}
}

func TestModel_Insert_AssignsUniqueNames(t *testing.T) {
	m := newTestModel(t)
	a := mustCreate(t, m, KindAddition)
	b := mustCreate(t, m, KindAddition)

	if a.UniqueName() == b.UniqueName() {
		t.Errorf("unique names must differ, both %q", a.UniqueName())
	}
	if a.FindOutputPort(FieldResult).UniqueName() != a.UniqueName()+"_"+FieldResult {
		t.Errorf("port unique name = %q", a.FindOutputPort(FieldResult).UniqueName())
	}

	found, ok := m.FindNode(a.UniqueName())
	if !ok || found != a {
		t.Error("FindNode should resolve the inserted node")
	}
}

func TestModel_AddLink_TypeMismatchFails(t *testing.T) {
	m := newTestModel(t)
	vec := mustCreate(t, m, KindConstantVector)
	add := mustCreate(t, m, KindAddition)

	port := vec.FindOutputPort(FieldVector)  // float3
	param := add.Parameter(FieldA)           // float after default rule

	if m.AddLink(port.ID(), param.ID(), false) {
		t.Error("mismatched link should fail")
	}
	if param.Source() != nil {
		t.Error("failed link must leave the parameter untouched")
	}

	// the same link is fine when the caller skips the check
	if !m.AddLink(port.ID(), param.ID(), true) {
		t.Error("skipTypeCheck link should succeed")
	}
}

func TestModel_AddLink_CycleRejected(t *testing.T) {
	m := newTestModel(t)
	a := mustCreate(t, m, KindAddition)
	b := mustCreate(t, m, KindAddition)

	if !m.AddLink(a.FindOutputPort(FieldResult).ID(), b.Parameter(FieldA).ID(), false) {
		t.Fatal("first link should succeed")
	}

	before := b.FindOutputPort(FieldResult)
	if m.AddLink(before.ID(), a.Parameter(FieldA).ID(), false) {
		t.Error("cycle-closing link should fail")
	}
	if a.Parameter(FieldA).Source() != nil {
		t.Error("rejected link must not install a source")
	}
	if dirgraph.IsCyclic(m.Graph()) {
		t.Error("graph must stay acyclic")
	}
}

func TestModel_AddLink_SelfLinkRejected(t *testing.T) {
	m := newTestModel(t)
	a := mustCreate(t, m, KindAddition)

	if m.AddLink(a.FindOutputPort(FieldResult).ID(), a.Parameter(FieldA).ID(), false) {
		t.Error("link from a node to itself should fail")
	}
}

func TestModel_RemoveLink(t *testing.T) {
	m := newTestModel(t)
	c := mustCreate(t, m, KindConstantScalar)
	a := mustCreate(t, m, KindAddition)

	port := c.FindOutputPort(FieldValue)
	m.AddLink(port.ID(), a.Parameter(FieldA).ID(), false)
	m.AddLink(port.ID(), a.Parameter(FieldB).ID(), false)

	// removing one of two links between the same node pair keeps the
	// dependency edge
	if !m.RemoveLink(port.ID(), a.Parameter(FieldA).ID()) {
		t.Fatal("RemoveLink should succeed")
	}
	if a.Parameter(FieldA).Source() != nil {
		t.Error("source must be cleared")
	}
	if !m.Graph().IsDirectlyDependingOn(a.ID(), c.ID()) {
		t.Error("edge must survive while the second link exists")
	}

	if !m.RemoveLink(port.ID(), a.Parameter(FieldB).ID()) {
		t.Fatal("second RemoveLink should succeed")
	}
	if m.Graph().IsDirectlyDependingOn(a.ID(), c.ID()) {
		t.Error("edge must fall with the last link")
	}
}

func TestModel_Remove_CleansBothSides(t *testing.T) {
	m := newTestModel(t)
	c := mustCreate(t, m, KindConstantScalar)
	mid := mustCreate(t, m, KindAddition)
	sink := mustCreate(t, m, KindAddition)

	m.AddLink(c.FindOutputPort(FieldValue).ID(), mid.Parameter(FieldA).ID(), false)
	m.AddLink(mid.FindOutputPort(FieldResult).ID(), sink.Parameter(FieldA).ID(), false)

	if !m.Remove(mid.ID()) {
		t.Fatal("Remove should succeed")
	}
	if _, ok := m.GetNode(mid.ID()); ok {
		t.Error("node must be gone")
	}
	if sink.Parameter(FieldA).Source() != nil {
		t.Error("downstream consumer must be unlinked")
	}
	if dirgraph.IsCyclic(m.Graph()) {
		t.Error("graph must stay acyclic")
	}
}

func TestModel_Ordering_ProducersFirst(t *testing.T) {
	m := newTestModel(t)
	c := mustCreate(t, m, KindConstantScalar)
	sine := mustCreate(t, m, KindSine)
	add := mustCreate(t, m, KindAddition)

	m.AddLink(c.FindOutputPort(FieldValue).ID(), sine.Parameter(FieldA).ID(), false)
	m.AddLink(sine.FindOutputPort(FieldResult).ID(), add.Parameter(FieldA).ID(), false)

	m.UpdateGraphAndOrderIfNeeded()

	if !(c.Order() < sine.Order() && sine.Order() < add.Order()) {
		t.Errorf("order c=%d sine=%d add=%d, want producers first",
			c.Order(), sine.Order(), add.Order())
	}
}

func TestModel_PortInUse(t *testing.T) {
	m := newTestModel(t)
	c := mustCreate(t, m, KindConstantScalar)
	a := mustCreate(t, m, KindAddition)

	port := c.FindOutputPort(FieldValue)
	m.AddLink(port.ID(), a.Parameter(FieldA).ID(), false)
	m.UpdateGraphAndOrderIfNeeded()
	if !port.InUse() {
		t.Error("linked port must be in use")
	}

	m.RemoveLink(port.ID(), a.Parameter(FieldA).ID())
	m.UpdateGraphAndOrderIfNeeded()
	if port.InUse() {
		t.Error("unlinked port must not be in use")
	}
}

func TestModel_UpdateTypes_VectorPropagation(t *testing.T) {
	m := newTestModel(t)
	vec := mustCreate(t, m, KindConstantVector)
	add := mustCreate(t, m, KindAddition)

	m.AddLink(vec.FindOutputPort(FieldVector).ID(), add.Parameter(FieldA).ID(), true)
	m.UpdateTypes()

	if got := add.Parameter(FieldA).Type(); got != TypeFloat3 {
		t.Errorf("A type = %v, want %v", got, TypeFloat3)
	}
	if got := add.Parameter(FieldB).Type(); got != TypeFloat3 {
		t.Errorf("B type = %v, want %v", got, TypeFloat3)
	}
	if got := add.FindOutputPort(FieldResult).Type(); got != TypeFloat3 {
		t.Errorf("result type = %v, want %v", got, TypeFloat3)
	}
	if add.RuleType() != RuleVector {
		t.Errorf("rule type = %v, want %v", add.RuleType(), RuleVector)
	}
}

func TestModel_UpdateTypes_KeepsSourceOnRetype(t *testing.T) {
	m := newTestModel(t)
	vec := mustCreate(t, m, KindConstantVector)
	add := mustCreate(t, m, KindAddition)

	m.AddLink(vec.FindOutputPort(FieldVector).ID(), add.Parameter(FieldA).ID(), true)
	m.UpdateTypes()

	src := add.Parameter(FieldA).Source()
	if src == nil {
		t.Fatal("retyped parameter must keep its source")
	}
	if src.PortID != vec.FindOutputPort(FieldVector).ID() {
		t.Error("source must still name the original port")
	}
}

func TestModel_Clear_PreservesIdentity(t *testing.T) {
	m := newTestModel(t)
	mustCreate(t, m, KindAddition)

	m.Clear()
	if m.NodeCount() != 0 {
		t.Errorf("NodeCount = %d after Clear", m.NodeCount())
	}
	if m.ResourceID() != 1 || m.DisplayName() != "test" {
		t.Error("Clear must preserve resource id and display name")
	}
}

func TestModel_Clone_IndependentCopy(t *testing.T) {
	m := newTestModel(t)
	c := mustCreate(t, m, KindConstantScalar)
	a := mustCreate(t, m, KindAddition)
	m.AddLink(c.FindOutputPort(FieldValue).ID(), a.Parameter(FieldA).ID(), false)

	clone := m.Clone()
	if clone.NodeCount() != m.NodeCount() {
		t.Fatalf("clone has %d nodes, want %d", clone.NodeCount(), m.NodeCount())
	}

	clonedAdd, ok := clone.GetNode(a.ID())
	if !ok {
		t.Fatal("clone must keep node ids")
	}
	if clonedAdd.Parameter(FieldA).Source() == nil {
		t.Fatal("clone must keep links")
	}

	// mutating the clone must not touch the original
	clone.Remove(a.ID())
	if _, ok := m.GetNode(a.ID()); !ok {
		t.Error("removing from the clone must not affect the original")
	}
}

func TestAddFunctionOutput(t *testing.T) {
	m := newTestModel(t)
	p, err := m.AddFunctionOutput("color", ZeroValue(TypeFloat3))
	if err != nil {
		t.Fatalf("AddFunctionOutput error = %v", err)
	}
	if p.Type() != TypeFloat3 {
		t.Errorf("type = %v, want %v", p.Type(), TypeFloat3)
	}
	if m.EndNode().Parameter("color") == nil {
		t.Error("End must carry the new output parameter")
	}
}

func TestFunctionCall_SignatureMirror(t *testing.T) {
	callee := NewModel(7, "callee")
	callee.CreateBeginEnd()
	if _, err := callee.AddArgument("radius", TypeFloat); err != nil {
		t.Fatalf("AddArgument error = %v", err)
	}
	if _, err := callee.AddFunctionOutput("color", ZeroValue(TypeFloat3)); err != nil {
		t.Fatalf("AddFunctionOutput error = %v", err)
	}

	m := newTestModel(t)
	call := mustCreate(t, m, KindFunctionCall)
	call.UpdateInputsAndOutputs(callee)
	m.registerNode(call)

	if call.Parameter("pos") == nil || call.Parameter("radius") == nil {
		t.Error("call must mirror the callee's Begin ports as inputs")
	}
	if call.Parameter(FieldFunctionID) == nil {
		t.Error("functionId parameter must survive the mirror")
	}
	if call.FindOutputPort(FieldShape) == nil || call.FindOutputPort("color") == nil {
		t.Error("call must mirror the callee's End inputs as outputs")
	}
	if got := call.FindOutputPort("color").Type(); got != TypeFloat3 {
		t.Errorf("color output type = %v, want %v", got, TypeFloat3)
	}
}

func TestFunctionCall_ResolveFromResourceNode(t *testing.T) {
	m := newTestModel(t)
	res := mustCreate(t, m, KindResource)
	res.Parameter(FieldResourceID).SetValue(ResourceIDValue(42))
	call := mustCreate(t, m, KindFunctionCall)

	if !m.AddLink(res.FindOutputPort(FieldValue).ID(), call.Parameter(FieldFunctionID).ID(), false) {
		t.Fatal("resource link should succeed")
	}
	if err := call.ResolveFunctionID(m); err != nil {
		t.Fatalf("ResolveFunctionID error = %v", err)
	}
	if call.FunctionID() != 42 {
		t.Errorf("FunctionID = %d, want 42", call.FunctionID())
	}
}

func TestFunctionCall_ResolveFromLiteral(t *testing.T) {
	m := newTestModel(t)
	call := mustCreate(t, m, KindFunctionCall)
	call.SetFunctionID(9)

	if err := call.ResolveFunctionID(m); err != nil {
		t.Fatalf("ResolveFunctionID error = %v", err)
	}
	if call.FunctionID() != 9 {
		t.Errorf("FunctionID = %d, want 9", call.FunctionID())
	}
}
