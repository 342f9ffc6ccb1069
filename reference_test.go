package halyard

import (
	"testing"
)

func TestReference_ResolveAttribute(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("module_1.class", "attr1", 5)
	patch.Set("module_2.class", "attr2", NewReference("module_1.class.attr1"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}
	if err := reg.RunPendingCycleChecks(); err != nil {
		t.Fatalf("RunPendingCycleChecks returned error: %v", err)
	}

	v, err := reg.GetAttribute("module_2.class", "attr2")
	if err != nil {
		t.Fatalf("GetAttribute returned error: %v", err)
	}
	if v != 5 {
		t.Errorf("attr2 = %v, want 5", v)
	}
}

func TestReference_ResolveWholeNode(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("primary", "host", "alpha")
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	ref := NewReference("primary")
	v, err := ref.Resolve(reg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	node, ok := v.(map[string]any)
	if !ok || node["host"] != "alpha" {
		t.Errorf("Resolve = %v, want the primary node", v)
	}
}

// TestReference_Chain verifies a chain of references resolves end to end.
func TestReference_Chain(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("c", "v", 42)
	patch.Set("b", "v", NewReference("c.v"))
	patch.Set("a", "v", NewReference("b.v"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}
	if err := reg.RunPendingCycleChecks(); err != nil {
		t.Fatalf("RunPendingCycleChecks returned error: %v", err)
	}

	v, err := reg.GetAttribute("a", "v")
	if err != nil {
		t.Fatalf("GetAttribute returned error: %v", err)
	}
	if v != 42 {
		t.Errorf("a.v = %v, want 42", v)
	}
}

// TestReference_CycleDetectedAtLoad verifies mutually referencing values
// fail the post-merge check before anything reads them.
func TestReference_CycleDetectedAtLoad(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "x", NewReference("b.y"))
	patch.Set("b", "y", NewReference("a.x"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	err := reg.RunPendingCycleChecks()
	if !HasCode(err, ErrCodeCircularReference) {
		t.Fatalf("expected CircularReference error, got %v", err)
	}
}

func TestReference_SelfCycle(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "x", NewReference("a.x"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	err := reg.RunPendingCycleChecks()
	if !HasCode(err, ErrCodeCircularReference) {
		t.Fatalf("expected CircularReference error, got %v", err)
	}
}

// TestReference_CycleDetectedAtResolve verifies a cycle still surfaces on
// read when load-time checks were skipped.
func TestReference_CycleDetectedAtResolve(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "x", NewReference("b.y"))
	patch.Set("b", "y", NewReference("a.x"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	_, err := reg.GetAttribute("a", "x")
	if !HasCode(err, ErrCodeCircularReference) {
		t.Fatalf("expected CircularReference error, got %v", err)
	}
}

// TestReference_DanglingTarget verifies an unset target passes the cycle
// check but fails at read time.
func TestReference_DanglingTarget(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "x", NewReference("never.loaded.value"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	if err := reg.RunPendingCycleChecks(); err != nil {
		t.Fatalf("cycle check must tolerate unset targets, got %v", err)
	}

	_, err := reg.GetAttribute("a", "x")
	if !HasCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NotFound error, got %v", err)
	}
}

func TestReference_String(t *testing.T) {
	ref := NewReference("a.b.c")
	if ref.String() != "!REF a.b.c" {
		t.Errorf("String() = %q, want %q", ref.String(), "!REF a.b.c")
	}
	if ref.Target() != "a.b.c" {
		t.Errorf("Target() = %q, want %q", ref.Target(), "a.b.c")
	}
}
