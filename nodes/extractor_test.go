package nodes

import (
	"errors"
	"testing"
)

func TestExtract_ConstantFeedingTwoConsumers(t *testing.T) {
	source := newTestModel(t)
	c := mustCreate(t, source, KindConstantScalar)
	a1 := mustCreate(t, source, KindAddition)
	a2 := mustCreate(t, source, KindAddition)
	source.AddLink(c.FindOutputPort(FieldValue).ID(), a1.Parameter(FieldA).ID(), false)
	source.AddLink(c.FindOutputPort(FieldValue).ID(), a2.Parameter(FieldA).ID(), false)

	destination := NewModel(5, "extracted")
	destination.CreateBeginEnd()

	result, err := ExtractFunction(source, destination, map[NodeID]struct{}{c.ID(): {}})
	if err != nil {
		t.Fatalf("ExtractFunction error = %v", err)
	}

	// the source now calls the new function
	if result.FunctionCall == nil {
		t.Fatal("no call site inserted")
	}
	if countKind(source, KindConstantScalar) != 0 {
		t.Error("the selected constant must leave the source")
	}
	if countKind(source, KindFunctionCall) != 1 {
		t.Error("the source must contain exactly one call")
	}
	if result.FunctionCall.FunctionID() != destination.ResourceID() {
		t.Errorf("call references %d, want %d",
			result.FunctionCall.FunctionID(), destination.ResourceID())
	}

	// both consumers read from the call's output now
	for _, consumer := range []*Node{a1, a2} {
		src := consumer.Parameter(FieldA).Source()
		if src == nil {
			t.Fatalf("%s lost its input", consumer.UniqueName())
		}
		if src.NodeID != result.FunctionCall.ID() {
			t.Errorf("%s reads from node %d, want the call site %d",
				consumer.UniqueName(), src.NodeID, result.FunctionCall.ID())
		}
	}

	// the destination holds the constant, wired to one End output
	if countKind(destination, KindConstantScalar) != 1 {
		t.Error("destination must contain the extracted constant")
	}
	end := destination.EndNode()
	outputs := 0
	end.Parameters(func(name string, p *Parameter) bool {
		outputs++
		if p.Type() != TypeFloat {
			t.Errorf("output %q type = %v, want %v", name, p.Type(), TypeFloat)
		}
		if p.Source() == nil {
			t.Errorf("output %q must be wired to the cloned constant", name)
		}
		return true
	})
	if outputs != 1 {
		t.Errorf("destination End has %d outputs, want 1", outputs)
	}
}

func TestExtract_BoundaryInputsBecomeArguments(t *testing.T) {
	source := newTestModel(t)
	c := mustCreate(t, source, KindConstantScalar)
	sine := mustCreate(t, source, KindSine)
	sink := mustCreate(t, source, KindAddition)
	source.AddLink(c.FindOutputPort(FieldValue).ID(), sine.Parameter(FieldA).ID(), false)
	source.AddLink(sine.FindOutputPort(FieldResult).ID(), sink.Parameter(FieldA).ID(), false)

	destination := NewModel(6, "extracted")
	destination.CreateBeginEnd()

	result, err := ExtractFunction(source, destination, map[NodeID]struct{}{sine.ID(): {}})
	if err != nil {
		t.Fatalf("ExtractFunction error = %v", err)
	}

	// the constant stayed outside and feeds the call's new argument
	if countKind(source, KindConstantScalar) != 1 {
		t.Error("unselected producer must stay in the source")
	}
	argName := ""
	for _, name := range result.FunctionCall.ParameterNames() {
		if name == FieldFunctionID || name == FieldPos {
			continue
		}
		argName = name
	}
	if argName == "" {
		t.Fatal("call gained no argument for the boundary input")
	}
	argSrc := result.FunctionCall.Parameter(argName).Source()
	if argSrc == nil || argSrc.NodeID != c.ID() {
		t.Error("the boundary argument must be fed by the original constant")
	}

	// inside, the cloned sine reads from a Begin port of the same name
	begin := destination.BeginNode()
	if begin.FindOutputPort(argName) == nil {
		t.Errorf("destination Begin must expose argument %q", argName)
	}
	clonedSine := destination.NodesByID()
	foundSine := false
	for _, n := range clonedSine {
		if n.Kind() != KindSine {
			continue
		}
		foundSine = true
		src := n.Parameter(FieldA).Source()
		if src == nil || src.NodeID != begin.ID() {
			t.Error("cloned sine must read from the destination Begin")
		}
	}
	if !foundSine {
		t.Fatal("sine was not cloned into the destination")
	}

	// "pos" stays reserved: the generated argument may not shadow it
	if argName == FieldPos {
		t.Errorf("generated argument name must not be %q", FieldPos)
	}
}

func TestExtract_IntraSelectionLinksSurvive(t *testing.T) {
	source := newTestModel(t)
	c := mustCreate(t, source, KindConstantScalar)
	sine := mustCreate(t, source, KindSine)
	cosine := mustCreate(t, source, KindCosine)
	sink := mustCreate(t, source, KindAddition)
	source.AddLink(c.FindOutputPort(FieldValue).ID(), sine.Parameter(FieldA).ID(), false)
	source.AddLink(sine.FindOutputPort(FieldResult).ID(), cosine.Parameter(FieldA).ID(), false)
	source.AddLink(cosine.FindOutputPort(FieldResult).ID(), sink.Parameter(FieldA).ID(), false)

	destination := NewModel(7, "extracted")
	destination.CreateBeginEnd()

	selection := map[NodeID]struct{}{sine.ID(): {}, cosine.ID(): {}}
	if _, err := ExtractFunction(source, destination, selection); err != nil {
		t.Fatalf("ExtractFunction error = %v", err)
	}

	var clonedSine, clonedCosine *Node
	for _, n := range destination.NodesByID() {
		switch n.Kind() {
		case KindSine:
			clonedSine = n
		case KindCosine:
			clonedCosine = n
		}
	}
	if clonedSine == nil || clonedCosine == nil {
		t.Fatal("both selected nodes must be cloned")
	}
	src := clonedCosine.Parameter(FieldA).Source()
	if src == nil || src.NodeID != clonedSine.ID() {
		t.Error("the sine->cosine link must be re-created between the clones")
	}
}

func TestExtract_RejectsMarkersAndEmptySelection(t *testing.T) {
	source := newTestModel(t)
	destination := NewModel(8, "extracted")
	destination.CreateBeginEnd()

	if _, err := ExtractFunction(source, destination, nil); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty selection error = %v, want ErrEmptySelection", err)
	}

	begin := source.BeginNode()
	_, err := ExtractFunction(source, destination, map[NodeID]struct{}{begin.ID(): {}})
	if !errors.Is(err, ErrMarkerSelected) {
		t.Errorf("marker selection error = %v, want ErrMarkerSelected", err)
	}

	_, err = ExtractFunction(source, destination, map[NodeID]struct{}{999: {}})
	if !errors.Is(err, ErrUnknownSelected) {
		t.Errorf("unknown selection error = %v, want ErrUnknownSelected", err)
	}
}

func TestExtract_ThenFlattenRestoresStructure(t *testing.T) {
	// extract and re-flatten; the wiring seen by End must be equivalent
	source := newTestModel(t)
	c := mustCreate(t, source, KindConstantScalar)
	c.Parameter(FieldValue).SetValue(FloatValue(2.5))
	sine := mustCreate(t, source, KindSine)
	source.AddLink(c.FindOutputPort(FieldValue).ID(), sine.Parameter(FieldA).ID(), false)
	source.AddLink(sine.FindOutputPort(FieldResult).ID(), source.EndNode().Parameter(FieldShape).ID(), false)

	destination := NewModel(9, "extracted")
	destination.CreateBeginEnd()
	result, err := ExtractFunction(source, destination, map[NodeID]struct{}{sine.ID(): {}})
	if err != nil {
		t.Fatalf("ExtractFunction error = %v", err)
	}

	// the mirrored pos argument is not part of the boundary; feed it so
	// the call is fully connected
	posParam := result.FunctionCall.Parameter(FieldPos)
	if !source.AddLink(source.BeginNode().FindOutputPort(FieldPos).ID(), posParam.ID(), false) {
		t.Fatal("wiring pos into the call failed")
	}

	assembly := NewAssembly()
	_ = assembly.AddModel(source)
	_ = assembly.AddModel(destination)

	flat, err := NewFlattener(assembly).Flatten()
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	flatModel := flat.AssemblyModel()

	if countKind(flatModel, KindSine) != 1 {
		t.Error("the extracted sine must be back after flattening")
	}
	src := flatModel.EndNode().Parameter(FieldShape).Source()
	if src == nil {
		t.Fatal("shape lost its source")
	}
	producer, _ := flatModel.GetNode(src.NodeID)
	if producer == nil || producer.Kind() != KindSine {
		t.Error("shape must be produced by the sine again")
	}
}
