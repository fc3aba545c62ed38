// Package persistence provides SQLite-based storage for environment
// snapshots, the change log and metadata.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/talgya/world-api/internal/environment"
	"github.com/talgya/world-api/internal/snapshot"
)

// ErrNoSnapshot is returned when no snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

var tracer = otel.Tracer("github.com/talgya/world-api/internal/persistence")

// DB wraps a SQLite connection for environment persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL,
		frame INTEGER NOT NULL,
		saved_at_ms INTEGER NOT NULL,
		data BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame INTEGER NOT NULL,
		at_ms INTEGER NOT NULL,
		mask INTEGER NOT NULL,
		categories TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_changes_frame ON changes(frame);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SaveSnapshot stores an encoded snapshot.
func (db *DB) SaveSnapshot(ctx context.Context, env snapshot.Envelope) (err error) {
	ctx, span := tracer.Start(ctx, "persistence.SaveSnapshot",
		trace.WithAttributes(attribute.String("snapshot.id", env.Header.ID)))
	defer func() { endSpan(span, err) }()

	data, err := snapshot.Encode(env)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(data)))

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO snapshots (id, version, frame, saved_at_ms, data) VALUES (?, ?, ?, ?, ?)",
		env.Header.ID, env.Header.Version, int64(env.Header.Frame), env.Header.SavedAt.UnixMilli(), data,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently saved snapshot.
func (db *DB) LatestSnapshot(ctx context.Context) (env snapshot.Envelope, err error) {
	ctx, span := tracer.Start(ctx, "persistence.LatestSnapshot")
	defer func() { endSpan(span, err) }()

	var data []byte
	err = db.conn.GetContext(ctx, &data, "SELECT data FROM snapshots ORDER BY seq DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Envelope{}, ErrNoSnapshot
	}
	if err != nil {
		return snapshot.Envelope{}, fmt.Errorf("select snapshot: %w", err)
	}
	return snapshot.Decode(data)
}

// LoadSnapshot returns the snapshot with the given id.
func (db *DB) LoadSnapshot(ctx context.Context, id string) (env snapshot.Envelope, err error) {
	ctx, span := tracer.Start(ctx, "persistence.LoadSnapshot",
		trace.WithAttributes(attribute.String("snapshot.id", id)))
	defer func() { endSpan(span, err) }()

	var data []byte
	err = db.conn.GetContext(ctx, &data, "SELECT data FROM snapshots WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Envelope{}, fmt.Errorf("snapshot %s: %w", id, ErrNoSnapshot)
	}
	if err != nil {
		return snapshot.Envelope{}, fmt.Errorf("select snapshot: %w", err)
	}
	return snapshot.Decode(data)
}

type snapshotRow struct {
	ID        string `db:"id"`
	Version   int    `db:"version"`
	Frame     int64  `db:"frame"`
	SavedAtMs int64  `db:"saved_at_ms"`
}

// ListSnapshots returns the headers of the newest snapshots, newest first.
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]snapshot.Header, error) {
	var rows []snapshotRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, version, frame, saved_at_ms FROM snapshots ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	headers := make([]snapshot.Header, len(rows))
	for i, r := range rows {
		headers[i] = snapshot.Header{
			Version: r.Version,
			ID:      r.ID,
			SavedAt: time.UnixMilli(r.SavedAtMs).UTC(),
			Frame:   uint64(r.Frame),
		}
	}
	return headers, nil
}

// HasSnapshot reports whether any snapshot is stored.
func (db *DB) HasSnapshot(ctx context.Context) (bool, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM snapshots"); err != nil {
		return false, fmt.Errorf("count snapshots: %w", err)
	}
	return n > 0, nil
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many were removed.
func (db *DB) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM snapshots WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)",
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Change is one entry of the change log.
type Change struct {
	ID         int64                  `json:"id"`
	Frame      uint64                 `json:"frame"`
	At         time.Time              `json:"at"`
	Mask       environment.ChangeMask `json:"mask"`
	Categories []string               `json:"categories"`
}

type changeRow struct {
	ID         int64  `db:"id"`
	Frame      int64  `db:"frame"`
	AtMs       int64  `db:"at_ms"`
	Mask       int64  `db:"mask"`
	Categories string `db:"categories"`
}

// RecordChanges appends entries to the change log in one transaction.
func (db *DB) RecordChanges(ctx context.Context, changes []Change) (err error) {
	if len(changes) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "persistence.RecordChanges",
		trace.WithAttributes(attribute.Int("changes.count", len(changes))))
	defer func() { endSpan(span, err) }()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range changes {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO changes (frame, at_ms, mask, categories) VALUES (?, ?, ?, ?)",
			int64(c.Frame), c.At.UnixMilli(), int64(c.Mask), c.Mask.String(),
		)
		if err != nil {
			return fmt.Errorf("insert change: %w", err)
		}
	}

	return tx.Commit()
}

// RecordChange appends one entry to the change log.
func (db *DB) RecordChange(ctx context.Context, c Change) error {
	return db.RecordChanges(ctx, []Change{c})
}

// RecentChanges returns the most recent N changes, newest first.
func (db *DB) RecentChanges(ctx context.Context, limit int) ([]Change, error) {
	var rows []changeRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, frame, at_ms, mask, categories FROM changes ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent changes: %w", err)
	}
	changes := make([]Change, len(rows))
	for i, r := range rows {
		mask := environment.ChangeMask(r.Mask)
		changes[i] = Change{
			ID:         r.ID,
			Frame:      uint64(r.Frame),
			At:         time.UnixMilli(r.AtMs).UTC(),
			Mask:       mask,
			Categories: mask.Categories(),
		}
	}
	return changes, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveFrame records the last persisted frame number.
func (db *DB) SaveFrame(frame uint64) error {
	return db.SaveMeta("last_frame", strconv.FormatUint(frame, 10))
}

// LastFrame returns the frame recorded by SaveFrame, or 0 if none.
func (db *DB) LastFrame() (uint64, error) {
	v, err := db.GetMeta("last_frame")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}
