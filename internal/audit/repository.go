// Package audit records every command the dispatcher executes in the
// command_log table and serves it back for the operator API.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/fleetlock/internal/command"
)

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// timeLayout is fixed-width so finished_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Entry is one executed command.
type Entry struct {
	ID          string    `json:"id"`
	Device      string    `json:"device"`
	Address     string    `json:"address"`
	Code        string    `json:"code"`
	Source      string    `json:"source"`
	Outcome     string    `json:"outcome"`
	Reply       string    `json:"reply,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// EntryFromResult converts a dispatcher result into an Entry.
func EntryFromResult(r command.Result) Entry {
	e := Entry{
		Device:      r.Command.Device,
		Address:     r.Command.Address,
		Code:        r.Command.Code.Name(),
		Source:      string(r.Command.Source),
		Outcome:     string(r.Outcome.Kind),
		DurationMS:  r.Duration().Milliseconds(),
		SubmittedAt: r.Command.Submitted,
		FinishedAt:  r.Finished,
	}
	if r.Outcome.OK() {
		e.Reply = string(r.Outcome.Reply)
	}
	if r.Outcome.Err != nil {
		e.Error = r.Outcome.Err.Error()
	}
	return e
}

// Filter controls which entries List returns.
type Filter struct {
	Device  string // optional: exact device name
	Code    string // optional: command name (lock, unlock, launch_a, ...)
	Outcome string // optional: outcome kind
	Limit   int    // default 50, max 500
	Offset  int
}

// ListResult contains one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for command log storage.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the command_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new command log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and FinishedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now().UTC()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = e.FinishedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log (id, device, address, code, source, outcome, reply, error, duration_ms, submitted_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Device, e.Address, e.Code, e.Source, e.Outcome,
		nullableString(e.Reply), nullableString(e.Error), e.DurationMS,
		e.SubmittedAt.UTC().Format(timeLayout),
		e.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Device != "" {
		conditions = append(conditions, "device = ?")
		args = append(args, filter.Device)
	}
	if filter.Code != "" {
		conditions = append(conditions, "code = ?")
		args = append(args, filter.Code)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_log " + where //nolint:gosec // WHERE built from fixed, parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := "SELECT id, device, address, code, source, outcome, reply, error, duration_ms, submitted_at, finished_at " + //nolint:gosec // as above
		"FROM command_log " + where + " ORDER BY finished_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var reply, errText sql.NullString
		var submittedAt, finishedAt string
		if err := rows.Scan(&e.ID, &e.Device, &e.Address, &e.Code, &e.Source, &e.Outcome,
			&reply, &errText, &e.DurationMS, &submittedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}
		e.Reply = reply.String
		e.Error = errText.String
		if e.SubmittedAt, err = time.Parse(timeLayout, submittedAt); err != nil {
			return nil, fmt.Errorf("parsing submitted_at %q: %w", submittedAt, err)
		}
		if e.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
