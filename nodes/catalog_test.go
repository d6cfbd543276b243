package nodes

import "testing"

func TestNew_UnknownKindReturnsNil(t *testing.T) {
	if New(NodeKind("NotAKind")) != nil {
		t.Error("New must return nil for unknown kinds")
	}
}

func TestNew_OperatorDefaults(t *testing.T) {
	n := New(KindAddition)
	if n == nil {
		t.Fatal("New(Addition) returned nil")
	}
	if n.Parameter(FieldA) == nil || n.Parameter(FieldB) == nil {
		t.Fatal("operator must declare A and B")
	}
	if got := n.Parameter(FieldA).Type(); got != TypeFloat {
		t.Errorf("default A type = %v, want %v", got, TypeFloat)
	}
	if port := n.FindOutputPort(FieldResult); port == nil || port.Type() != TypeFloat {
		t.Error("operator must declare a float result by default")
	}
	if n.Category() != CategoryMath {
		t.Errorf("category = %v, want Math", n.Category())
	}
}

func TestNew_ConstantsAreExempt(t *testing.T) {
	for _, kind := range []NodeKind{
		KindBegin, KindEnd, KindTransformation,
		KindConstantScalar, KindConstantVector, KindConstantMatrix, KindResource,
	} {
		if !IsExemptFromInputValidation(kind) {
			t.Errorf("%s must be exempt from input validation", kind)
		}
	}
	for _, kind := range []NodeKind{KindAddition, KindImageSampler, KindFunctionCall, KindBoxMinMax} {
		if IsExemptFromInputValidation(kind) {
			t.Errorf("%s must not be exempt", kind)
		}
	}
}

func TestNew_DecomposeVectorPorts(t *testing.T) {
	n := New(KindDecomposeVector)
	for _, name := range []string{FieldX, FieldY, FieldZ} {
		port := n.FindOutputPort(name)
		if port == nil || port.Type() != TypeFloat {
			t.Errorf("DecomposeVector must expose float port %q", name)
		}
	}
	if got := n.Parameter(FieldA).Type(); got != TypeFloat3 {
		t.Errorf("A type = %v, want %v", got, TypeFloat3)
	}
}

func TestNew_ComposeMatrixDeclaresSixteenInputs(t *testing.T) {
	n := New(KindComposeMatrix)
	if got := len(n.ParameterNames()); got != 16 {
		t.Fatalf("ComposeMatrix has %d inputs, want 16", got)
	}
	if port := n.FindOutputPort(FieldResult); port == nil || port.Type() != TypeMatrix4 {
		t.Error("ComposeMatrix must produce a mat4 result")
	}
}

func TestNew_ImageSamplerCaches(t *testing.T) {
	n := New(KindImageSampler)
	for _, name := range []string{FieldStart, FieldEnd, FieldDimensions} {
		p := n.Parameter(name)
		if p == nil {
			t.Fatalf("sampler must declare %q", name)
		}
		if p.InputSourceRequired() {
			t.Errorf("cache parameter %q must not require a source", name)
		}
		if p.Visible() {
			t.Errorf("cache parameter %q must be hidden", name)
		}
	}
	if port := n.FindOutputPort(FieldColor); port == nil || port.Type() != TypeFloat3 {
		t.Error("sampler must expose a vec3 color")
	}
	if port := n.FindOutputPort(FieldAlpha); port == nil || port.Type() != TypeFloat {
		t.Error("sampler must expose a float alpha")
	}
}

func TestKnownKinds_CoversCatalog(t *testing.T) {
	kinds := KnownKinds()
	if len(kinds) == 0 {
		t.Fatal("catalog must not be empty")
	}
	seen := make(map[NodeKind]struct{}, len(kinds))
	for _, kind := range kinds {
		if !IsKnownKind(kind) {
			t.Errorf("listed kind %s is not known", kind)
		}
		seen[kind] = struct{}{}
	}
	for _, required := range []NodeKind{
		KindBegin, KindEnd, KindAddition, KindSine, KindMix, KindSelect,
		KindDotProduct, KindComposeMatrixFromColumns, KindConstantMatrix,
		KindResource, KindImageSampler, KindFunctionCall,
		KindSignedDistanceToMesh, KindSignedDistanceToBeamLattice,
	} {
		if _, ok := seen[required]; !ok {
			t.Errorf("catalog is missing %s", required)
		}
	}
}

func TestCompareModels_DetectsDifferences(t *testing.T) {
	build := func() *Model {
		m := NewModel(1, "cmp")
		m.CreateBeginEnd()
		c, _ := m.Create(KindConstantScalar)
		sine, _ := m.Create(KindSine)
		m.AddLink(c.FindOutputPort(FieldValue).ID(), sine.Parameter(FieldA).ID(), false)
		m.AddLink(sine.FindOutputPort(FieldResult).ID(), m.EndNode().Parameter(FieldShape).ID(), false)
		return m
	}

	a, b := build(), build()
	if equal, diff := CompareModels(a, b); !equal {
		t.Errorf("identical builds must compare equal, diff: %s", diff)
	}

	extra, _ := b.Create(KindCosine)
	_ = extra
	if equal, _ := CompareModels(a, b); equal {
		t.Error("differing kind multisets must compare unequal")
	}
}
