package resource

import (
	"testing"

	"github.com/fieldforge/fieldforge/nodes"
)

func TestManager_ExtentsDegradeToZero(t *testing.T) {
	m := NewManager()
	m.Register(Resource{
		Key:  Key{ResourceID: 7},
		Kind: "image_stack",
		Extents: Extents{
			StartIndex: 10, EndIndex: 20,
			Dimensions: [3]uint32{64, 64, 32},
		},
	})

	extents, found := m.ExtentsOf(Key{ResourceID: 7})
	if !found || extents.Dimensions[0] != 64 {
		t.Errorf("extents = %+v found=%v", extents, found)
	}

	extents, found = m.ExtentsOf(Key{ResourceID: 8})
	if found {
		t.Error("missing resource must not report found")
	}
	if extents != (Extents{}) {
		t.Errorf("missing resource must degrade to zero extents, got %+v", extents)
	}
}

func TestManager_Keys(t *testing.T) {
	m := NewManager()
	m.Register(Resource{Key: Key{ResourceID: 3}})
	m.Register(Resource{Key: Key{ResourceID: 1}})
	keys := m.Keys()
	if len(keys) != 2 || keys[0].ResourceID != 1 || keys[1].ResourceID != 3 {
		t.Errorf("Keys = %v, want ascending ids", keys)
	}

	m.Remove(Key{ResourceID: 1})
	if len(m.Keys()) != 1 {
		t.Error("Remove must drop the key")
	}
}

// chainAssembly builds entry(1) -> lib(2) via a FunctionCall.
func chainAssembly(t *testing.T) *nodes.Assembly {
	t.Helper()
	lib := nodes.NewModel(2, "lib")
	lib.CreateBeginEnd()

	entry := nodes.NewModel(1, "entry")
	entry.CreateBeginEnd()
	call, err := entry.Create(nodes.KindFunctionCall)
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	call.SetFunctionID(2)

	assembly := nodes.NewAssembly()
	_ = assembly.AddModel(entry)
	_ = assembly.AddModel(lib)
	return assembly
}

func TestDependencyGraph_TracksCalls(t *testing.T) {
	dg := NewDependencyGraph(chainAssembly(t))

	if !dg.IsRequired(2) {
		t.Error("the callee must be required")
	}
	if dg.IsRequired(1) {
		t.Error("nothing depends on the entry")
	}

	required := dg.RequiredBy(1)
	if len(required) != 1 || required[0] != 2 {
		t.Errorf("RequiredBy(1) = %v, want [2]", required)
	}
}

func TestDependencyGraph_UnusedAndDeletionOrder(t *testing.T) {
	dg := NewDependencyGraph(chainAssembly(t))

	unused := dg.UnusedResources(1)
	if len(unused) != 0 {
		t.Errorf("UnusedResources = %v, want none besides the entry", unused)
	}

	order := dg.DeletionOrder()
	if len(order) != 2 {
		t.Fatalf("DeletionOrder = %v", order)
	}
	// the entry (dependent) must come before its callee
	if order[0] != 1 || order[1] != 2 {
		t.Errorf("DeletionOrder = %v, want [1 2]", order)
	}
}

func TestDependencyGraph_CycleProbe(t *testing.T) {
	dg := NewDependencyGraph(chainAssembly(t))

	if dg.WouldCreateCycle(1, 2) {
		t.Error("re-adding an existing direction is not a cycle")
	}
	if !dg.WouldCreateCycle(2, 1) {
		t.Error("the reverse reference would close a cycle")
	}
}
