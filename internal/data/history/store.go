// # internal/data/history/store.go
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
	defaultBundle      = "default"

	// Fixed width so stored timestamps sort lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens or creates the history database at path and applies pending
// migrations. A non-positive busyTimeout uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot stores snap and returns it with BuildID, Bundle, Timestamp and
// SchemaVersion filled in. Saving an existing BuildID replaces that build.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Bundle = bundleKey(snap.Bundle)
	if snap.BuildID == "" {
		snap.BuildID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	snap.Timestamp = snap.Timestamp.UTC()
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = SchemaVersion
	}
	if snap.SchemaVersion != SchemaVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot schema version %d", snap.SchemaVersion)
	}

	err := s.withRetry("save snapshot", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := writeSnapshot(ctx, tx, snap); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, snap Snapshot) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO plans (build_id, bundle, schema_version, ts_utc, module_count, edge_count, root_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(build_id) DO UPDATE SET
  bundle=excluded.bundle,
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  module_count=excluded.module_count,
  edge_count=excluded.edge_count,
  root_count=excluded.root_count
`,
		snap.BuildID,
		snap.Bundle,
		snap.SchemaVersion,
		snap.Timestamp.Format(tsLayout),
		snap.ModuleCount,
		snap.EdgeCount,
		snap.RootCount,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_order WHERE build_id = ?`, snap.BuildID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM banned_edges WHERE build_id = ?`, snap.BuildID); err != nil {
		return err
	}

	for i, id := range snap.Order {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO plan_order (build_id, position, module_id) VALUES (?, ?, ?)`,
			snap.BuildID, i, id,
		); err != nil {
			return err
		}
	}
	for _, e := range snap.Banned {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO banned_edges (build_id, from_id, to_id) VALUES (?, ?, ?)`,
			snap.BuildID, e.From, e.To,
		); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshots returns the builds of bundle at or after since, oldest first.
// A zero since loads every build.
func (s *Store) LoadSnapshots(ctx context.Context, bundle string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT build_id, bundle, schema_version, ts_utc, module_count, edge_count, root_count
FROM plans
WHERE bundle = ?`
	args := []any{bundleKey(bundle)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(tsLayout))
	}
	query += " ORDER BY ts_utc ASC, build_id ASC"

	snapshots, err := s.queryPlans(ctx, "load snapshots", query, args...)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		if err := s.loadDetails(ctx, &snapshots[i]); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

// Latest returns the most recent build of bundle. ok is false when the
// bundle has no history.
func (s *Store) Latest(ctx context.Context, bundle string) (snap Snapshot, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.queryPlans(ctx, "load latest snapshot", `
SELECT build_id, bundle, schema_version, ts_utc, module_count, edge_count, root_count
FROM plans
WHERE bundle = ?
ORDER BY ts_utc DESC, build_id DESC
LIMIT 1`, bundleKey(bundle))
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return Snapshot{}, false, nil
	}
	snap = snapshots[0]
	if err := s.loadDetails(ctx, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// queryPlans reads plan rows fully before returning; the store holds a single
// connection, so detail queries cannot run while rows are open.
func (s *Store) queryPlans(ctx context.Context, op, query string, args ...any) ([]Snapshot, error) {
	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			tsRaw string
			snap  Snapshot
		)
		if err := rows.Scan(
			&snap.BuildID,
			&snap.Bundle,
			&snap.SchemaVersion,
			&tsRaw,
			&snap.ModuleCount,
			&snap.EdgeCount,
			&snap.RootCount,
		); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		ts, err := time.Parse(tsLayout, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse plan timestamp %q: %w", tsRaw, err)
		}
		snap.Timestamp = ts.UTC()
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan rows: %w", err)
	}
	return snapshots, nil
}

func (s *Store) loadDetails(ctx context.Context, snap *Snapshot) error {
	orderRows, err := s.db.QueryContext(ctx,
		`SELECT module_id FROM plan_order WHERE build_id = ? ORDER BY position ASC`, snap.BuildID)
	if err != nil {
		return fmt.Errorf("load plan order %s: %w", snap.BuildID, err)
	}
	for orderRows.Next() {
		var id string
		if err := orderRows.Scan(&id); err != nil {
			_ = orderRows.Close()
			return fmt.Errorf("scan plan order: %w", err)
		}
		snap.Order = append(snap.Order, id)
	}
	if err := orderRows.Close(); err != nil {
		return err
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id FROM banned_edges WHERE build_id = ? ORDER BY from_id ASC, to_id ASC`, snap.BuildID)
	if err != nil {
		return fmt.Errorf("load banned edges %s: %w", snap.BuildID, err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e Edge
		if err := edgeRows.Scan(&e.From, &e.To); err != nil {
			return fmt.Errorf("scan banned edge: %w", err)
		}
		snap.Banned = append(snap.Banned, e)
	}
	return edgeRows.Err()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func bundleKey(bundle string) string {
	bundle = strings.TrimSpace(bundle)
	if bundle == "" {
		return defaultBundle
	}
	return bundle
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// IsCorruptError reports whether err looks like a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
