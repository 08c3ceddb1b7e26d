package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrCorrupt indicates the post_history table holds more than one row for a
// single post id. Fatal; requires manual intervention.
var ErrCorrupt = errors.New("post state corrupt: duplicate post id")

const tableName = "post_history"

// PostState is the durable record of one post's rule outcome and action
// timestamps. Values are copies; the engine derives a new PostState from the
// prior one and hands it back to Upsert, never mutating shared state.
type PostState struct {
	PostID string

	// RequiresComment is re-evaluated every tick from the live snapshot
	// (flair is mutable); the stored value is informational.
	RequiresComment bool

	// CommentSatisfied is monotonic: once true it never goes back to false.
	CommentSatisfied bool

	// MonitoringActive is false once the case is closed: requirement not
	// applicable, satisfied, or timed out.
	MonitoringActive bool

	// Action timestamps in unix seconds; 0 = not yet performed.
	RemindedUTC int64
	RemovedUTC  int64
	ReportedUTC int64
}

// NewPostState returns the default state for a post's first sighting.
func NewPostState(postID string) PostState {
	return PostState{PostID: postID, MonitoringActive: true}
}

// Open opens (or creates) the SQLite database at dbPath and ensures the
// post_history table exists.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open: empty db path")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open: create db dir: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?mode=rwc&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: sql open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open: ping: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open: migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		post_id            TEXT NOT NULL,
		url                TEXT NOT NULL DEFAULT '',
		created_utc        INTEGER NOT NULL DEFAULT 0,
		requires_comment   INTEGER NOT NULL DEFAULT 0,
		comment_satisfied  INTEGER NOT NULL DEFAULT 0,
		monitoring_active  INTEGER NOT NULL DEFAULT 1,
		reminded_utc       INTEGER NOT NULL DEFAULT 0,
		removed_utc        INTEGER NOT NULL DEFAULT 0,
		reported_utc       INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Store provides keyed access to post_history rows.
type Store struct {
	db *sql.DB
}

// New returns a Store bound to an existing database handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Store{db: db}, nil
}

// GetOrCreate returns the stored state for the post, inserting the default
// state on first sighting. url and createdUTC are recorded once, at insert
// time, for the audit trail. Returns ErrCorrupt when the id matches more
// than one row.
func (s *Store) GetOrCreate(ctx context.Context, postID, url string, createdUTC int64) (PostState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, requires_comment, comment_satisfied, monitoring_active,
		        reminded_utc, removed_utc, reported_utc
		 FROM `+tableName+` WHERE post_id = ?`, postID)
	if err != nil {
		return PostState{}, fmt.Errorf("get post state: query: %w", err)
	}
	defer rows.Close()

	var states []PostState
	for rows.Next() {
		var st PostState
		err := rows.Scan(&st.PostID, &st.RequiresComment, &st.CommentSatisfied,
			&st.MonitoringActive, &st.RemindedUTC, &st.RemovedUTC, &st.ReportedUTC)
		if err != nil {
			return PostState{}, fmt.Errorf("get post state: scan: %w", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return PostState{}, fmt.Errorf("get post state: rows: %w", err)
	}

	switch len(states) {
	case 1:
		return states[0], nil
	case 0:
		st := NewPostState(postID)
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO `+tableName+`
			 (post_id, url, created_utc, requires_comment, comment_satisfied,
			  monitoring_active, reminded_utc, removed_utc, reported_utc)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.PostID, url, createdUTC, st.RequiresComment, st.CommentSatisfied,
			st.MonitoringActive, st.RemindedUTC, st.RemovedUTC, st.ReportedUTC)
		if err != nil {
			return PostState{}, fmt.Errorf("create post state: insert: %w", err)
		}
		return st, nil
	default:
		return PostState{}, fmt.Errorf("%w: post %s has %d rows", ErrCorrupt, postID, len(states))
	}
}

// Upsert replaces the stored state for the post. Applying the same state
// twice leaves the row unchanged. The post must already exist (GetOrCreate
// runs first in every tick); an unknown id is reported as an error rather
// than silently inserted without its audit columns.
func (s *Store) Upsert(ctx context.Context, st PostState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tableName+`
		 SET requires_comment = ?, comment_satisfied = ?, monitoring_active = ?,
		     reminded_utc = ?, removed_utc = ?, reported_utc = ?
		 WHERE post_id = ?`,
		st.RequiresComment, st.CommentSatisfied, st.MonitoringActive,
		st.RemindedUTC, st.RemovedUTC, st.ReportedUTC, st.PostID)
	if err != nil {
		return fmt.Errorf("upsert post state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert post state: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("upsert post state: post %s not found", st.PostID)
	}
	if n > 1 {
		return fmt.Errorf("%w: post %s updated %d rows", ErrCorrupt, st.PostID, n)
	}
	return nil
}
