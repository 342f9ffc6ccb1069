package halyard

import (
	"testing"
)

func TestRegistry_MergeAndGet(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("server", "host", "localhost")
	patch.Set("server", "port", 8080)

	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	host, err := reg.GetAttribute("server", "host")
	if err != nil {
		t.Fatalf("GetAttribute returned error: %v", err)
	}
	if host != "localhost" {
		t.Errorf("host = %v, want localhost", host)
	}

	node, err := reg.GetNode("server")
	if err != nil {
		t.Fatalf("GetNode returned error: %v", err)
	}
	mapping, ok := node.(map[string]any)
	if !ok {
		t.Fatalf("GetNode returned %T, want map[string]any", node)
	}
	if mapping["port"] != 8080 {
		t.Errorf("port = %v, want 8080", mapping["port"])
	}
}

func TestRegistry_GetNodeNotFound(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.GetNode("no.such.path")
	if !HasCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NotFound error, got %v", err)
	}
}

// TestRegistry_ScalarIntermediate verifies that walking through a scalar
// reports NotAMapping rather than NotFound.
func TestRegistry_ScalarIntermediate(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "b", 5)
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	_, err := reg.GetNode("a.b.c")
	if !HasCode(err, ErrCodeNotAMapping) {
		t.Fatalf("expected NotAMapping error, got %v", err)
	}

	_, err = reg.GetAttribute("a.b", "c")
	if !HasCode(err, ErrCodeNotAMapping) {
		t.Fatalf("expected NotAMapping error, got %v", err)
	}
}

// TestRegistry_MergeOverScalar verifies that a patch descending through an
// existing scalar is rejected rather than silently replacing it.
func TestRegistry_MergeOverScalar(t *testing.T) {
	reg := NewRegistry()

	first := Patch{}
	first.Set("a", "b", 5)
	if err := reg.MergePatch(first); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	second := Patch{}
	second.Set("a.b", "c", 1)
	err := reg.MergePatch(second)
	if !HasCode(err, ErrCodeNotAMapping) {
		t.Fatalf("expected NotAMapping error, got %v", err)
	}

	// The original scalar must be intact.
	v, err := reg.GetAttribute("a", "b")
	if err != nil || v != 5 {
		t.Errorf("a.b = %v (err %v), want 5", v, err)
	}
}

// TestRegistry_DottedAttributeExpansion verifies that dots in attribute
// names expand into nested mappings, matching the equivalent nested patch.
func TestRegistry_DottedAttributeExpansion(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("module", "class.attr1", 5)
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	v, err := reg.GetAttribute("module.class", "attr1")
	if err != nil {
		t.Fatalf("GetAttribute returned error: %v", err)
	}
	if v != 5 {
		t.Errorf("attr1 = %v, want 5", v)
	}
}

// TestRegistry_NestedMappingValue verifies that mapping-shaped patch values
// merge recursively and mark every touched attribute.
func TestRegistry_NestedMappingValue(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("db", "pool", map[string]any{"size": 10, "timeout": 30})
	if err := reg.MergePatchFrom("conf.yaml", patch); err != nil {
		t.Fatalf("MergePatchFrom returned error: %v", err)
	}

	size, err := reg.GetAttribute("db.pool", "size")
	if err != nil || size != 10 {
		t.Fatalf("db.pool.size = %v (err %v), want 10", size, err)
	}

	if got := reg.OverwrittenBy("db.pool.size"); got != "conf.yaml" {
		t.Errorf("OverwrittenBy(db.pool.size) = %q, want %q", got, "conf.yaml")
	}
	if got := reg.OverwrittenBy("db.pool"); got != "conf.yaml" {
		t.Errorf("OverwrittenBy(db.pool) = %q, want %q", got, "conf.yaml")
	}
}

func TestRegistry_SetAttribute(t *testing.T) {
	reg := NewRegistry()

	if err := reg.SetAttribute("app", "debug", true); err != nil {
		t.Fatalf("SetAttribute returned error: %v", err)
	}

	v, err := reg.GetAttribute("app", "debug")
	if err != nil || v != true {
		t.Fatalf("app.debug = %v (err %v), want true", v, err)
	}

	// A programmatic write counts as an overwrite for teardown purposes.
	if reg.OverwrittenBy("app.debug") == "" {
		t.Error("SetAttribute must mark the attribute overwritten")
	}
}

func TestRegistry_SetAttributeThroughReference(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("a", "x", NewReference("b.y"))
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}
	if err := reg.RunPendingCycleChecks(); err != nil {
		t.Fatalf("RunPendingCycleChecks returned error: %v", err)
	}

	err := reg.SetAttribute("a", "x", 1)
	if !HasCode(err, ErrCodeInvalidOperation) {
		t.Fatalf("expected InvalidOperation error, got %v", err)
	}
}

// TestRegistry_OverrideBeforeRegister verifies that a source merged before
// registration wins over the entry's defaults.
func TestRegistry_OverrideBeforeRegister(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("app.server", "port", 9090)
	if err := reg.MergePatchFrom("prod.hal", patch); err != nil {
		t.Fatalf("MergePatchFrom returned error: %v", err)
	}

	err := reg.Register(Entry{
		Path:     "app.server",
		Defaults: map[string]any{"port": 8080, "host": "localhost"},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	port, err := reg.GetAttribute("app.server", "port")
	if err != nil || port != 9090 {
		t.Fatalf("port = %v (err %v), want 9090", port, err)
	}
	host, err := reg.GetAttribute("app.server", "host")
	if err != nil || host != "localhost" {
		t.Fatalf("host = %v (err %v), want localhost", host, err)
	}
}

// TestRegistry_UnloadDefaultsKeepsOverrides verifies that teardown removes
// defaults but never values a source set.
func TestRegistry_UnloadDefaultsKeepsOverrides(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Entry{
		Path:     "app.server",
		Defaults: map[string]any{"port": 8080, "host": "localhost"},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	patch := Patch{}
	patch.Set("app.server", "port", 9090)
	if err := reg.MergePatchFrom("prod.hal", patch); err != nil {
		t.Fatalf("MergePatchFrom returned error: %v", err)
	}

	reg.UnloadDefaults("app.server")

	port, err := reg.GetAttribute("app.server", "port")
	if err != nil || port != 9090 {
		t.Fatalf("port = %v (err %v), want 9090 to survive unload", port, err)
	}

	_, err = reg.GetAttribute("app.server", "host")
	if !HasCode(err, ErrCodeNotFound) {
		t.Fatalf("expected host default to be removed, got %v", err)
	}
}

func TestRegistry_UnloadDefaultsMissingPath(t *testing.T) {
	reg := NewRegistry()
	// Must not panic or fail on a path that was never populated.
	reg.UnloadDefaults("no.such.path")
}

// TestRegistry_MergeRejectsScalarAtRegisteredPath verifies that a source
// cannot collapse a claimed path into a scalar.
func TestRegistry_MergeRejectsScalarAtRegisteredPath(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Entry{
		Path:     "app.server",
		Defaults: map[string]any{"port": 8080},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	patch := Patch{}
	patch.Set("app", "server", "oops")
	err = reg.MergePatch(patch)
	if !HasCode(err, ErrCodeNotAMapping) {
		t.Fatalf("expected NotAMapping error, got %v", err)
	}

	port, err := reg.GetAttribute("app.server", "port")
	if err != nil || port != 8080 {
		t.Fatalf("port = %v (err %v), want registered node intact", port, err)
	}
}

// TestRegistry_NodeCache verifies reads after in-place mutation observe the
// new values.
func TestRegistry_NodeCache(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("cache", "n", 1)
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	if _, err := reg.GetNode("cache"); err != nil {
		t.Fatalf("GetNode returned error: %v", err)
	}

	update := Patch{}
	update.Set("cache", "n", 2)
	if err := reg.MergePatch(update); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	v, err := reg.GetAttribute("cache", "n")
	if err != nil || v != 2 {
		t.Fatalf("cache.n = %v (err %v), want 2", v, err)
	}
}

func TestRegistry_MergeMapAnyKeys(t *testing.T) {
	reg := NewRegistry()

	patch := Patch{}
	patch.Set("svc", "limits", map[any]any{"rps": 100})
	if err := reg.MergePatch(patch); err != nil {
		t.Fatalf("MergePatch returned error: %v", err)
	}

	v, err := reg.GetAttribute("svc.limits", "rps")
	if err != nil || v != 100 {
		t.Fatalf("svc.limits.rps = %v (err %v), want 100", v, err)
	}
}
