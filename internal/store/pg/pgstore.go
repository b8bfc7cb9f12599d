// Package pg persists community snapshots in PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultName is the snapshot row used by the API server.
const DefaultName = "community"

// Store keeps one snapshot per name in community_snapshots. Older versions
// are kept up to the retention count.
type Store struct {
	db     *sql.DB
	name   string
	retain int
}

type Option func(*Store)

// WithName selects the snapshot row family.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithRetention keeps the newest n snapshots; older ones are pruned on Save.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retain = n
		}
	}
}

func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, name: DefaultName, retain: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Save writes blob as the newest snapshot and prunes old ones in the same
// transaction. It returns the new snapshot version.
func (s *Store) Save(ctx context.Context, blob []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	err = tx.QueryRowContext(ctx, `
		insert into community_snapshots(name, version, payload, created_at)
		values ($1, coalesce((select max(version) from community_snapshots where name = $1), 0) + 1, $2, now())
		returning version
	`, s.name, blob).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		delete from community_snapshots
		where name = $1 and version <= $2
	`, s.name, version-int64(s.retain)); err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// Load returns the newest snapshot. found is false when none was saved.
func (s *Store) Load(ctx context.Context) (blob []byte, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		select payload from community_snapshots
		where name = $1
		order by version desc
		limit 1
	`, s.name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	return blob, true, nil
}

// Info describes a stored snapshot.
type Info struct {
	Version   int64
	Size      int
	CreatedAt time.Time
}

// List returns the stored snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		select version, octet_length(payload), created_at from community_snapshots
		where name = $1
		order by version desc
	`, s.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Info
	for rows.Next() {
		var in Info
		if err := rows.Scan(&in.Version, &in.Size, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
