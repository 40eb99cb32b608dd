package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAuditDisabledInProductionMode(t *testing.T) {
	resetLoggingState(t)
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}
	Audit(AuditEvent{EventType: AuditHookInvoked, Success: true, Message: "should be dropped"})

	if auditFile != nil {
		t.Fatalf("expected audit file to stay nil in production mode")
	}
}

func TestAuditWritesJSONLInDebugMode(t *testing.T) {
	resetLoggingState(t)
	ws := t.TempDir()
	writeTestConfig(t, ws, loggingConfig{DebugMode: true, Level: "debug"})
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}
	defer CloseAudit()

	Audit(AuditEvent{
		EventType: AuditConsolidationRun,
		Success:   true,
		Target:    "window=200",
		Message:   "consolidation completed",
	})
	auditFile.Sync()

	entries, err := os.ReadDir(filepath.Join(ws, ".nerdmem", "logs"))
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}
	var auditPath string
	for _, e := range entries {
		if name := e.Name(); containsAudit(name) {
			auditPath = name
		}
	}
	if auditPath == "" {
		t.Fatalf("expected an audit log file among %v", entries)
	}

	f, err := os.Open(filepath.Join(ws, ".nerdmem", "logs", auditPath))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require := scanner.Scan()
	if !require {
		t.Fatalf("expected at least one audit line")
	}
	var ev AuditEvent
	if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if ev.EventType != AuditConsolidationRun || !ev.Success {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func containsAudit(name string) bool {
	for i := 0; i+5 <= len(name); i++ {
		if name[i:i+5] == "audit" {
			return true
		}
	}
	return false
}
