package ux

import (
	"encoding/json"
	"fmt"
)

// MigrationResult contains information about a navigation state migration.
type MigrationResult struct {
	WasMigrated   bool
	FromVersion   string
	ToVersion     string
	PreservedData []string // fields carried over from the old file
}

// legacyNavigation is the version 1 layout: flat camelCase ids, with the
// selected base stored as a whole record.
type legacyNavigation struct {
	CurrentTableID string `json:"currentTableId"`
	CurrentViewID  string `json:"currentViewId"`
	CurrentBaseID  string `json:"currentBaseId"`
	SelectedBase   *struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		WorkspaceID string `json:"workspaceId"`
	} `json:"selectedBase"`
}

// MigrateNavigation parses navigation.json content of any known version and
// returns it in the current schema. A file without a version is version 1.
func MigrateNavigation(data []byte) (*NavigationState, *MigrationResult, error) {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, err
	}

	result := &MigrationResult{FromVersion: probe.Version, ToVersion: NavigationVersion}

	switch probe.Version {
	case NavigationVersion:
		var state NavigationState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, nil, err
		}
		return &state, result, nil
	case "", "1":
		state, err := migrateFromV1(data, result)
		if err != nil {
			return nil, nil, err
		}
		result.WasMigrated = true
		return state, result, nil
	default:
		return nil, nil, fmt.Errorf("unsupported navigation version %q", probe.Version)
	}
}

func migrateFromV1(data []byte, result *MigrationResult) (*NavigationState, error) {
	var old legacyNavigation
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}

	state := &NavigationState{Version: NavigationVersion}

	// The base record wins over the bare id; they were written by separate stores.
	if old.SelectedBase != nil && old.SelectedBase.ID != "" {
		state.BaseID = old.SelectedBase.ID
		state.BaseName = old.SelectedBase.Name
		state.WorkspaceID = old.SelectedBase.WorkspaceID
		result.PreservedData = append(result.PreservedData, "selected_base")
	} else if old.CurrentBaseID != "" {
		state.BaseID = old.CurrentBaseID
		result.PreservedData = append(result.PreservedData, "base_id")
	}

	// Table and view only make sense under the base they were recorded with.
	if old.CurrentTableID != "" && (old.CurrentBaseID == "" || old.CurrentBaseID == state.BaseID) {
		state.TableID = old.CurrentTableID
		result.PreservedData = append(result.PreservedData, "table_id")
		if old.CurrentViewID != "" {
			state.ViewID = old.CurrentViewID
			result.PreservedData = append(result.PreservedData, "view_id")
		}
	}
	return state, nil
}
