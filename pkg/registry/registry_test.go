package registry

import (
	"sort"
	"testing"

	"github.com/pondworks/command-engine/pkg/codec"
)

func noop(any) error { return nil }

func TestRegister_And_Lookup(t *testing.T) {
	reg := New()

	if !reg.Register("FeedDuck", codec.Int32, noop) {
		t.Fatal("registry:registry_test - expected registration to succeed")
	}

	d, ok := reg.Lookup("FeedDuck")
	if !ok {
		t.Fatal("registry:registry_test - expected FeedDuck to be registered")
	}
	if d.Name != "FeedDuck" {
		t.Errorf("registry:registry_test - Name = %q, want FeedDuck", d.Name)
	}
	if d.Input.Kind() != codec.KindInt32 {
		t.Errorf("registry:registry_test - Input kind = %v, want Int32", d.Input.Kind())
	}
}

func TestRegister_Rejections(t *testing.T) {
	reg := New()

	if reg.Register("", codec.Int32, noop) {
		t.Error("registry:registry_test - empty name should be rejected")
	}
	if reg.Register("FeedDuck", codec.Int32, nil) {
		t.Error("registry:registry_test - nil handler should be rejected")
	}
	if reg.Register("FeedDuck", codec.TypeTag{}, noop) {
		t.Error("registry:registry_test - invalid type tag should be rejected")
	}
	if reg.Count() != 0 {
		t.Errorf("registry:registry_test - Count = %d, want 0 after rejections", reg.Count())
	}
}

func TestRegister_LastWriterWins(t *testing.T) {
	reg := New()

	firstCalled := false
	secondCalled := false
	reg.Register("FeedDuck", codec.Int32, func(any) error { firstCalled = true; return nil })
	if !reg.Register("FeedDuck", codec.String, func(any) error { secondCalled = true; return nil }) {
		t.Fatal("registry:registry_test - re-registration should succeed")
	}

	if reg.Count() != 1 {
		t.Errorf("registry:registry_test - Count = %d, want 1", reg.Count())
	}

	d, _ := reg.Lookup("FeedDuck")
	if d.Input.Kind() != codec.KindString {
		t.Errorf("registry:registry_test - Input kind = %v, want String after replacement", d.Input.Kind())
	}
	d.Handler(nil)
	if firstCalled || !secondCalled {
		t.Errorf("registry:registry_test - firstCalled=%v secondCalled=%v, want only second", firstCalled, secondCalled)
	}
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	reg := New()
	reg.Register("FeedDuck", codec.Int32, noop)

	for _, name := range []string{"feedduck", "FEEDDUCK", " FeedDuck", "FeedDuck "} {
		if _, ok := reg.Lookup(name); ok {
			t.Errorf("registry:registry_test - %q should not resolve (byte-for-byte match only)", name)
		}
	}
}

func TestNames_Snapshot(t *testing.T) {
	reg := New()
	reg.Register("FeedDuck", codec.Int32, noop)
	reg.Register("MoveObject", codec.Vector3, noop)
	reg.Register("SetColor", codec.Color, noop)

	names := reg.Names()
	sort.Strings(names)
	want := []string{"FeedDuck", "MoveObject", "SetColor"}
	if len(names) != len(want) {
		t.Fatalf("registry:registry_test - Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("registry:registry_test - Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	// The snapshot does not alias registry state.
	names[0] = "mutated"
	if _, ok := reg.Lookup("FeedDuck"); !ok {
		t.Error("registry:registry_test - mutating the snapshot must not affect the registry")
	}
}

func TestCount(t *testing.T) {
	reg := New()
	if reg.Count() != 0 {
		t.Errorf("registry:registry_test - Count = %d, want 0", reg.Count())
	}
	reg.Register("A", codec.Int32, noop)
	reg.Register("B", codec.Float32, noop)
	if reg.Count() != 2 {
		t.Errorf("registry:registry_test - Count = %d, want 2", reg.Count())
	}
}
