// Package journal persists command invocations and the camera instructions
// they caused.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/db"
)

// Invocation is one dispatched command.
type Invocation struct {
	ID       int64         `json:"id"`
	Source   string        `json:"source"`
	Console  bool          `json:"console"`
	Command  string        `json:"command"`
	Args     []string      `json:"args"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// FromCommand converts a dispatcher invocation.
func FromCommand(inv command.Invocation) Invocation {
	out := Invocation{
		Source:   inv.Source,
		Console:  inv.Console,
		Command:  inv.Command,
		Args:     inv.Args,
		Start:    inv.Start,
		Duration: inv.Duration,
	}
	if inv.Err != nil {
		out.Error = inv.Err.Error()
	}
	return out
}

// Instruction is one camera or input instruction delivered to a connection.
type Instruction struct {
	ID           int64           `json:"id"`
	ConnectionID string          `json:"connection_id"`
	Connection   string          `json:"connection"`
	Kind         string          `json:"kind"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Time         time.Time       `json:"time"`
}

// InvocationStore handles command history.
type InvocationStore interface {
	RecordInvocation(ctx context.Context, inv Invocation) error
	RecentInvocations(ctx context.Context, limit int) ([]Invocation, error)
}

// InstructionStore handles delivered instructions.
type InstructionStore interface {
	RecordInstruction(ctx context.Context, ins Instruction) error
	RecentInstructions(ctx context.Context, connectionID string, limit int) ([]Instruction, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
}

// Journal is the full persistence surface.
type Journal interface {
	InvocationStore
	InstructionStore
	StateStore

	// Close closes the underlying database.
	Close() error
}

// Open returns a sqlite-backed journal at path, or a no-op journal when
// path is empty.
func Open(path string) (Journal, error) {
	if path == "" {
		return Nop{}, nil
	}
	d, err := db.Init(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(d), nil
}

// SQLiteStore implements Journal.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the connection for maintenance.
func (s *SQLiteStore) DB() *db.DB {
	return s.db
}

// --- Invocations ---

func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv Invocation) error {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	if inv.Start.IsZero() {
		inv.Start = time.Now()
	}
	query := `INSERT INTO invocations (source, console, command, args, started_at, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		inv.Source, inv.Console, inv.Command, string(args),
		inv.Start.UnixMilli(), inv.Duration.Milliseconds(), inv.Error)
	return err
}

func (s *SQLiteStore) RecentInvocations(ctx context.Context, limit int) ([]Invocation, error) {
	query := `SELECT id, source, console, command, args, started_at, duration_ms, error
		FROM invocations ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var (
			inv        Invocation
			args       sql.NullString
			startedAt  int64
			durationMs sql.NullInt64
			errText    sql.NullString
		)
		if err := rows.Scan(&inv.ID, &inv.Source, &inv.Console, &inv.Command, &args, &startedAt, &durationMs, &errText); err != nil {
			return nil, err
		}
		if args.Valid && args.String != "" {
			if err := json.Unmarshal([]byte(args.String), &inv.Args); err != nil {
				return nil, fmt.Errorf("invocation %d args: %w", inv.ID, err)
			}
		}
		inv.Start = time.UnixMilli(startedAt)
		inv.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		inv.Error = errText.String
		out = append(out, inv)
	}
	return out, rows.Err()
}

// --- Instructions ---

func (s *SQLiteStore) RecordInstruction(ctx context.Context, ins Instruction) error {
	if ins.Time.IsZero() {
		ins.Time = time.Now()
	}
	var payload any
	if len(ins.Payload) > 0 {
		payload = string(ins.Payload)
	}
	query := `INSERT INTO instructions (connection_id, connection, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, ins.ConnectionID, ins.Connection, ins.Kind, payload, ins.Time.UnixMilli())
	return err
}

// RecentInstructions returns the latest instructions, newest first. An
// empty connectionID matches every connection.
func (s *SQLiteStore) RecentInstructions(ctx context.Context, connectionID string, limit int) ([]Instruction, error) {
	query := `SELECT id, connection_id, connection, kind, payload, created_at FROM instructions`
	args := []any{}
	if connectionID != "" {
		query += ` WHERE connection_id = ?`
		args = append(args, connectionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Instruction
	for rows.Next() {
		var (
			ins       Instruction
			name      sql.NullString
			payload   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&ins.ID, &ins.ConnectionID, &name, &ins.Kind, &payload, &createdAt); err != nil {
			return nil, err
		}
		ins.Connection = name.String
		if payload.Valid {
			ins.Payload = json.RawMessage(payload.String)
		}
		ins.Time = time.UnixMilli(createdAt)
		out = append(out, ins)
	}
	return out, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		// sql.ErrNoRows included
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format("2006-01-02 15:04:05"))
	return err
}

const (
	defaultLimit = 50
	maxLimit     = 1000
)

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}

// Nop is a Journal that stores nothing.
type Nop struct{}

func (Nop) RecordInvocation(context.Context, Invocation) error { return nil }
func (Nop) RecentInvocations(context.Context, int) ([]Invocation, error) {
	return nil, nil
}
func (Nop) RecordInstruction(context.Context, Instruction) error { return nil }
func (Nop) RecentInstructions(context.Context, string, int) ([]Instruction, error) {
	return nil, nil
}
func (Nop) GetState(context.Context, string) (string, bool) { return "", false }
func (Nop) SetState(context.Context, string, string) error { return nil }
func (Nop) Close() error { return nil }
