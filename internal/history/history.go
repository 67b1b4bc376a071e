// Package history records dispatched jobs in SQLite. It is an audit
// artifact only: intake never reads it, and a write failure never stops
// the dispatch loop.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/cmdq/internal/job"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one recorded job attempt.
type Entry struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	JobID       int        `json:"job_id"`
	Command     string     `json:"command"`
	Args        []string   `json:"args"`
	PID         int        `json:"pid,omitempty"`
	Status      Status     `json:"status"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store persists job history rows, all tagged with one session id.
type Store struct {
	db      *sql.DB
	session string
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, session: uuid.NewString()}
}

// Session returns the id shared by every row this store writes.
func (s *Store) Session() string {
	return s.session
}

// JobStarted records a dispatched job and returns the row id used to close
// it out later. pid may be 0 when the process never started.
func (s *Store) JobStarted(ctx context.Context, j *job.Job, pid int) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	args, err := json.Marshal(j.Args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}

	var pidVal any
	if pid > 0 {
		pidVal = pid
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO job_history(
  id, session_id, job_id, command, args, pid, status, submitted_at, started_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, s.session, j.ID, j.Command, string(args), pidVal, StatusRunning,
		j.SubmittedAt.Format(time.RFC3339Nano), now)
	if err != nil {
		return "", fmt.Errorf("insert job history: %w", err)
	}
	return id, nil
}

// JobFinished marks a history row terminal. exitCode is ignored when the
// status is failed with no process (lastError explains why).
func (s *Store) JobFinished(ctx context.Context, id string, status Status, exitCode *int, lastError *string) error {
	if id == "" {
		return fmt.Errorf("history row id is empty")
	}
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("invalid terminal status: %q", status)
	}

	completedAt := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
UPDATE job_history
SET status = ?, exit_code = ?, last_error = ?, completed_at = ?
WHERE id = ?;
`, status, exitCode, lastError, completedAt, id)
	if err != nil {
		return fmt.Errorf("update job history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history row %s not found", id)
	}
	return nil
}

// Recent returns the newest entries for this session, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, job_id, command, args, pid, status, exit_code, last_error,
       submitted_at, started_at, completed_at
FROM job_history
WHERE session_id = ?
ORDER BY started_at DESC, rowid DESC
LIMIT ?;
`, s.session, limit)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			argsJSON     string
			pid          sql.NullInt64
			exitCode     sql.NullInt64
			lastError    sql.NullString
			statusS      string
			submittedAtS string
			startedAtS   sql.NullString
			completedAtS sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.JobID, &e.Command, &argsJSON, &pid, &statusS,
			&exitCode, &lastError, &submittedAtS, &startedAtS, &completedAtS,
		); err != nil {
			return nil, fmt.Errorf("scan job history: %w", err)
		}

		e.Status = Status(statusS)
		if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args: %w", err)
		}
		if pid.Valid {
			e.PID = int(pid.Int64)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			e.ExitCode = &code
		}
		if lastError.Valid {
			e.LastError = &lastError.String
		}
		if t, err := time.Parse(time.RFC3339Nano, submittedAtS); err == nil {
			e.SubmittedAt = t
		}
		if startedAtS.Valid {
			if t, err := time.Parse(time.RFC3339Nano, startedAtS.String); err == nil {
				e.StartedAt = &t
			}
		}
		if completedAtS.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedAtS.String); err == nil {
				e.CompletedAt = &t
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
