package ux

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrateNavigationCurrentVersion(t *testing.T) {
	data := []byte(`{"version":"2","base_id":"b1","table_id":"t1"}`)
	state, result, err := MigrateNavigation(data)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if result.WasMigrated {
		t.Fatalf("current version must not be migrated")
	}
	if state.BaseID != "b1" || state.TableID != "t1" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestMigrateNavigationFromV1(t *testing.T) {
	data := []byte(`{
		"currentTableId": "t1",
		"currentViewId": "v1",
		"currentBaseId": "b1",
		"selectedBase": {"id": "b1", "name": "CRM", "workspaceId": "w1"}
	}`)
	state, result, err := MigrateNavigation(data)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !result.WasMigrated {
		t.Fatalf("expected migration from unversioned file")
	}
	if result.FromVersion != "" || result.ToVersion != NavigationVersion {
		t.Fatalf("unexpected versions: %q -> %q", result.FromVersion, result.ToVersion)
	}
	want := NavigationState{
		Version:     NavigationVersion,
		WorkspaceID: "w1",
		BaseID:      "b1",
		BaseName:    "CRM",
		TableID:     "t1",
		ViewID:      "v1",
	}
	if *state != want {
		t.Fatalf("got %+v, want %+v", *state, want)
	}
	if len(result.PreservedData) != 3 {
		t.Fatalf("expected 3 preserved fields, got %v", result.PreservedData)
	}
}

func TestMigrateNavigationDropsTableOfOtherBase(t *testing.T) {
	data := []byte(`{
		"currentTableId": "t1",
		"currentBaseId": "b-old",
		"selectedBase": {"id": "b-new", "name": "New"}
	}`)
	state, _, err := MigrateNavigation(data)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if state.BaseID != "b-new" {
		t.Fatalf("expected selected base to win, got %q", state.BaseID)
	}
	if state.TableID != "" {
		t.Fatalf("table from another base must be dropped, got %q", state.TableID)
	}
}

func TestMigrateNavigationRejectsUnknownVersion(t *testing.T) {
	if _, _, err := MigrateNavigation([]byte(`{"version":"99"}`)); err == nil {
		t.Fatalf("expected error for unknown version")
	}
	if _, _, err := MigrateNavigation([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestLoadRewritesLegacyFile(t *testing.T) {
	workspace := t.TempDir()
	nav := NewNavigator(workspace)
	if err := os.MkdirAll(filepath.Dir(nav.Path()), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(nav.Path(), []byte(`{"currentBaseId":"b1","currentTableId":"t1"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := nav.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := nav.Get(); got.BaseID != "b1" || got.TableID != "t1" {
		t.Fatalf("unexpected state after load: %+v", got)
	}

	data, err := os.ReadFile(nav.Path())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	_, result, err := MigrateNavigation(data)
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if result.WasMigrated {
		t.Fatalf("file should have been rewritten in the current version")
	}
}
