package ux

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airgrid/internal/config"
	"airgrid/internal/logging"
)

// NavigationVersion is the current schema version for navigation.json.
const NavigationVersion = "2"

// NavigationFile is the file name under the config directory.
const NavigationFile = "navigation.json"

// NavigationState is where the user currently is. Empty ids mean nothing is
// selected at that level.
type NavigationState struct {
	// Version is the schema version for migration detection
	Version string `json:"version"`

	WorkspaceID string `json:"workspace_id,omitempty"`
	BaseID      string `json:"base_id,omitempty"`
	// BaseName is kept for display before the store is opened
	BaseName string `json:"base_name,omitempty"`
	TableID  string `json:"table_id,omitempty"`
	ViewID   string `json:"view_id,omitempty"`

	UpdatedAt string `json:"updated_at,omitempty"`
}

// HasBase reports whether a base is selected.
func (s NavigationState) HasBase() bool { return s.BaseID != "" }

// HasTable reports whether a table is selected.
func (s NavigationState) HasTable() bool { return s.TableID != "" }

// BaseLabel returns the selected base's name for status lines.
func (s NavigationState) BaseLabel() string {
	switch {
	case s.BaseName != "":
		return s.BaseName
	case s.BaseID != "":
		return s.BaseID
	default:
		return "No base selected"
	}
}

// Navigator loads, mutates and persists the navigation state.
type Navigator struct {
	mu    sync.RWMutex
	path  string
	state NavigationState
}

// NewNavigator creates a navigator for the given workspace. Nothing is read
// until Load.
func NewNavigator(workspace string) *Navigator {
	return &Navigator{
		path:  filepath.Join(workspace, config.DefaultConfigDir, NavigationFile),
		state: NavigationState{Version: NavigationVersion},
	}
}

// Path returns the backing file.
func (n *Navigator) Path() string { return n.path }

// Load reads the state from disk. A missing file yields an empty state. Files
// from older versions are migrated and written back.
func (n *Navigator) Load() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := os.ReadFile(n.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			n.state = NavigationState{Version: NavigationVersion}
			return nil
		}
		return fmt.Errorf("failed to read navigation state: %w", err)
	}

	state, result, err := MigrateNavigation(data)
	if err != nil {
		return fmt.Errorf("failed to parse navigation state: %w", err)
	}
	n.state = *state

	if result.WasMigrated {
		logging.Session("Migrated navigation state from version %q to %q (kept %v)",
			result.FromVersion, result.ToVersion, result.PreservedData)
		if err := n.saveLocked(); err != nil {
			return err
		}
	}
	logging.SessionDebug("Navigation loaded: base=%s table=%s view=%s", n.state.BaseID, n.state.TableID, n.state.ViewID)
	return nil
}

// Save writes the state to disk.
func (n *Navigator) Save() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.saveLocked()
}

func (n *Navigator) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(n.path), 0755); err != nil {
		return fmt.Errorf("failed to create navigation directory: %w", err)
	}

	n.state.Version = NavigationVersion
	data, err := json.MarshalIndent(n.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal navigation state: %w", err)
	}
	if err := os.WriteFile(n.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write navigation state: %w", err)
	}
	return nil
}

// Get returns a copy of the current state.
func (n *Navigator) Get() NavigationState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Navigator) touch() {
	n.state.UpdatedAt = time.Now().Format(time.RFC3339)
}

// SetWorkspace selects a workspace. Anything selected below it is dropped
// when the workspace changes.
func (n *Navigator) SetWorkspace(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.WorkspaceID != id {
		n.state.BaseID, n.state.BaseName = "", ""
		n.state.TableID, n.state.ViewID = "", ""
	}
	n.state.WorkspaceID = id
	n.touch()
}

// SetBase selects a base, dropping the table and view when it changes.
func (n *Navigator) SetBase(id, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.BaseID != id {
		n.state.TableID, n.state.ViewID = "", ""
	}
	n.state.BaseID, n.state.BaseName = id, name
	n.touch()
}

// SetTable selects a table, dropping the view when it changes.
func (n *Navigator) SetTable(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.TableID != id {
		n.state.ViewID = ""
	}
	n.state.TableID = id
	n.touch()
}

// SetView selects a view of the current table.
func (n *Navigator) SetView(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.ViewID = id
	n.touch()
}

// SetNavigation sets base, table and view in one step.
func (n *Navigator) SetNavigation(baseID, tableID, viewID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.BaseID != baseID {
		n.state.BaseName = ""
	}
	n.state.BaseID, n.state.TableID, n.state.ViewID = baseID, tableID, viewID
	n.touch()
}

// Clear forgets the state and removes the file. Used on logout.
func (n *Navigator) Clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.state = NavigationState{Version: NavigationVersion}
	if err := os.Remove(n.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove navigation state: %w", err)
	}
	logging.Session("Navigation state cleared")
	return nil
}
