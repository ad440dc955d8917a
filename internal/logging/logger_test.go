package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// resetState clears package globals between tests.
func resetState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	configLoaded = false
	auditLogger = nil
	config = loggingConfig{}
	logLevel = LevelInfo
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".airgrid")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	categories := []Category{CategoryBoot, CategorySession, CategoryStore, CategoryGrid, CategoryUI, CategorySheets, CategoryWatch}
	for _, cat := range categories {
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
	}

	Store("Convenience store log")
	Grid("Convenience grid log")
	SheetsDebug("Convenience sheets log")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".airgrid", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				found = true
				content, _ := os.ReadFile(filepath.Join(tempDir, ".airgrid", "logs", entry.Name()))
				if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: false
`)
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	Grid("should not be written")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, ".airgrid", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist in production mode")
	}
}

// TestMissingConfig falls back to production mode
func TestMissingConfig(t *testing.T) {
	resetState()
	defer resetState()

	if err := Initialize(t.TempDir()); err != nil {
		t.Fatalf("Initialize without config failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("debug mode should be off without a config file")
	}
	if err := Initialize(""); err == nil {
		t.Error("expected error for empty workspace")
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: true
  categories:
    grid: true
    store: false
`)
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsCategoryEnabled(CategoryGrid) {
		t.Error("grid should be enabled")
	}
	if IsCategoryEnabled(CategoryStore) {
		t.Error("store should be disabled")
	}
	if !IsCategoryEnabled(CategoryUI) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestJSONFormatAndAudit(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: true
  json_format: true
`)
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit failed: %v", err)
	}

	Grid("json line")
	AuditForTable("tbl-1").OpResolved("op-1", "commit_cell", "r1/c1", 5*time.Millisecond, errors.New("boom"))
	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".airgrid", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	var sawAudit bool
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), "_audit.log") {
			continue
		}
		sawAudit = true
		data, _ := os.ReadFile(filepath.Join(logsPath, entry.Name()))
		var ev AuditEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &ev); err != nil {
			t.Fatalf("audit line is not JSON: %v", err)
		}
		if ev.EventType != AuditOpFailed || ev.TableID != "tbl-1" || ev.Error != "boom" {
			t.Errorf("unexpected audit event: %+v", ev)
		}
	}
	if !sawAudit {
		t.Error("audit log not written")
	}
}

func TestTimerLogging(t *testing.T) {
	resetState()
	defer resetState()

	timer := StartTimer(CategoryGrid, "op")
	time.Sleep(time.Millisecond)
	if d := timer.Stop(); d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
	if d := StartTimer(CategoryGrid, "op").StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("unexpected duration %v", d)
	}
}
