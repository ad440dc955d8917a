package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES - one JSON line per grid mutation outcome
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	AuditOpIssued    AuditEventType = "op_issued"
	AuditOpCommitted AuditEventType = "op_committed"
	AuditOpFailed    AuditEventType = "op_failed"

	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"
)

// AuditEvent is a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	TableID    string                 `json:"table,omitempty"`
	OpID       string                 `json:"op,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger writes audit events, optionally scoped to a table.
type AuditLogger struct {
	tableID  string
	category Category
}

// InitAudit opens the audit log. No-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{category: CategoryGrid}
	}
	return auditLogger
}

// AuditForTable creates an audit logger scoped to a table
func AuditForTable(tableID string) *AuditLogger {
	return &AuditLogger{tableID: tableID, category: CategoryGrid}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.TableID == "" {
		event.TableID = a.tableID
	}
	if event.Category == "" {
		event.Category = string(a.category)
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// OpIssued records an optimistic mutation handed to the store.
func (a *AuditLogger) OpIssued(opID, action, target string) {
	a.Log(AuditEvent{EventType: AuditOpIssued, OpID: opID, Action: action, Target: target, Success: true})
}

// OpResolved records the store's answer for a mutation.
func (a *AuditLogger) OpResolved(opID, action, target string, duration time.Duration, err error) {
	event := AuditEvent{
		EventType:  AuditOpCommitted,
		OpID:       opID,
		Action:     action,
		Target:     target,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		event.EventType = AuditOpFailed
		event.Error = err.Error()
	}
	a.Log(event)
}

// SessionStart records the TUI opening a table.
func (a *AuditLogger) SessionStart(tableID string) {
	a.Log(AuditEvent{EventType: AuditSessionStart, TableID: tableID, Success: true})
}

// SessionEnd records the TUI closing.
func (a *AuditLogger) SessionEnd(tableID string, duration time.Duration) {
	a.Log(AuditEvent{EventType: AuditSessionEnd, TableID: tableID, Success: true, DurationMs: duration.Milliseconds()})
}
