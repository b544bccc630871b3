// Package history persists search sessions and their trials in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/space"
)

// Session is one stored search session.
type Session struct {
	ID          string
	InputPath   string
	OutputPath  string
	State       string
	Target      *int64
	Winner      string
	WinnerBytes int64
	Trials      int
	Rounds      int
	Elapsed     time.Duration
	Cause       string
	CreatedAt   time.Time
}

// Trial is one stored trial of a session.
type Trial struct {
	Seq       int
	Params    space.ParameterSet
	SizeBytes int64
	Score     int
	Elapsed   time.Duration
	Error     string
}

// Store is a SQLite-backed history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FromResult converts a finished session into storable rows.
func FromResult(res *search.SessionResult, inputPath, outputPath string) (Session, []Trial) {
	sess := Session{
		ID:         res.ID,
		InputPath:  inputPath,
		OutputPath: outputPath,
		State:      res.State.String(),
		Target:     res.Target,
		Trials:     res.Trials,
		Rounds:     res.Rounds,
		Elapsed:    res.Elapsed,
		CreatedAt:  time.Now(),
	}
	if res.Winner != nil {
		sess.Winner = res.Winner.Params.String()
		sess.WinnerBytes = res.Winner.Outcome.SizeBytes
	}
	if res.Cause != nil {
		sess.Cause = res.Cause.Error()
	}

	trials := make([]Trial, 0, len(res.History))
	for _, rec := range res.History {
		t := Trial{
			Seq:       rec.Seq,
			Params:    rec.Params,
			SizeBytes: rec.Outcome.SizeBytes,
			Score:     rec.Outcome.Score,
			Elapsed:   rec.Outcome.Elapsed,
		}
		if rec.Err != nil {
			t.Error = rec.Err.Error()
		}
		trials = append(trials, t)
	}
	return sess, trials
}

// Record stores a session and its trials in one transaction.
func (s *Store) Record(ctx context.Context, sess Session, trials []Trial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var target sql.NullInt64
	if sess.Target != nil {
		target = sql.NullInt64{Int64: *sess.Target, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, input_path, output_path, state, target_bytes, winner,
			winner_bytes, trials, rounds, elapsed_ms, cause, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.InputPath, sess.OutputPath, sess.State, target, sess.Winner,
		sess.WinnerBytes, sess.Trials, sess.Rounds, sess.Elapsed.Milliseconds(), sess.Cause,
		sess.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (session_id, seq, quality, diffusion, frame_skip, size_bytes,
			score, elapsed_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range trials {
		_, err := stmt.ExecContext(ctx, sess.ID, t.Seq, t.Params.Quality, t.Params.Diffusion,
			t.Params.FrameSkip, t.SizeBytes, t.Score, t.Elapsed.Milliseconds(), t.Error)
		if err != nil {
			return fmt.Errorf("failed to insert trial %d: %w", t.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input_path, output_path, state, target_bytes, winner, winner_bytes,
			trials, rounds, elapsed_ms, cause, created_at
		FROM sessions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var (
			sess              Session
			target            sql.NullInt64
			elapsedMs, create int64
		)
		if err := rows.Scan(&sess.ID, &sess.InputPath, &sess.OutputPath, &sess.State, &target,
			&sess.Winner, &sess.WinnerBytes, &sess.Trials, &sess.Rounds, &elapsedMs, &sess.Cause,
			&create); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if target.Valid {
			v := target.Int64
			sess.Target = &v
		}
		sess.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		sess.CreatedAt = time.UnixMilli(create)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Trials returns the trials of a session in discovery order.
func (s *Store) Trials(ctx context.Context, sessionID string) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, quality, diffusion, frame_skip, size_bytes, score, elapsed_ms, error
		FROM trials
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trials []Trial
	for rows.Next() {
		var (
			t         Trial
			elapsedMs int64
		)
		if err := rows.Scan(&t.Seq, &t.Params.Quality, &t.Params.Diffusion, &t.Params.FrameSkip,
			&t.SizeBytes, &t.Score, &elapsedMs, &t.Error); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		t.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		trials = append(trials, t)
	}
	return trials, rows.Err()
}
