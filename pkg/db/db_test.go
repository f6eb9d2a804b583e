package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"cameraapitest/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected WAL mode, got %q", mode)
	}

	for _, table := range []string{"invocations", "instructions", "persistent_state"} {
		var n int
		if err := d.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil {
			t.Fatalf("sqlite_master query failed: %v", err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestInitTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		d, err := db.Init(path)
		if err != nil {
			t.Fatalf("Init() run %d failed: %v", i, err)
		}
		d.Close()
	}
}

func TestPrune(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "prune.db"))
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	fresh := time.Now().UnixMilli()
	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := d.Exec(q, args...); err != nil {
			t.Fatalf("exec failed: %v", err)
		}
	}
	mustExec("INSERT INTO invocations (source, command, started_at) VALUES ('CONSOLE', 'fade', ?), ('CONSOLE', 'fade', ?)", old, fresh)
	mustExec("INSERT INTO instructions (connection_id, kind, created_at) VALUES ('c1', 'camera_fade', ?)", old)

	n, err := d.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned rows, got %d", n)
	}

	n, err = d.Prune(0)
	if err != nil || n != 0 {
		t.Errorf("Prune(0) = %d, %v; want 0, nil", n, err)
	}

	var left int
	if err := d.QueryRow("SELECT count(*) FROM invocations").Scan(&left); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if left != 1 {
		t.Errorf("expected 1 invocation left, got %d", left)
	}
}
