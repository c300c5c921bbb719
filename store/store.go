// Package store persists sector archives in a SQLite database. It is the
// source the streamer loads sectors from.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/sector"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	ErrTypeNotFound = "sector_archive_not_found"
)

const schema = `
CREATE TABLE IF NOT EXISTS sectors (
	guids      TEXT    NOT NULL,
	timestamp  INTEGER NOT NULL,
	kind       TEXT    NOT NULL,
	cell_count INTEGER NOT NULL,
	archive    BLOB    NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (guids, timestamp)
);
`

// Entry describes a stored sector archive.
type Entry struct {
	Identity  sector.Identity
	Kind      string
	CellCount int
	Size      int
	UpdatedAt time.Time
}

// Store is a SQLite backed sector archive store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty store path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New("creating store directory failed").
			WithTag("path", path).
			Wrap(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New("opening store failed").
			WithTag("path", path).
			Wrap(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.New("initializing store failed").
				WithTag("path", path).
				Wrap(err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put validates and stores a sector archive. An archive with the same
// identity is replaced.
func (s *Store) Put(ctx context.Context, archive []byte) (sector.Identity, error) {
	sec, err := sector.DecodeArchive(archive)
	if err != nil {
		instrumentOperation("put", err)
		return sector.Identity{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sectors (guids, timestamp, kind, cell_count, archive, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (guids, timestamp) DO UPDATE SET
			kind = excluded.kind,
			cell_count = excluded.cell_count,
			archive = excluded.archive,
			updated_at = excluded.updated_at`,
		sec.Identity.Key(),
		sec.Identity.Timestamp,
		sec.Kind.String(),
		len(sec.Cells),
		archive,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		err = errors.New("storing sector archive failed").
			WithTag("sector", sec.Identity.String()).
			Wrap(err)
	}
	instrumentOperation("put", err)
	return sec.Identity, err
}

// Get returns the archive of the sector with the given identity.
func (s *Store) Get(ctx context.Context, id sector.Identity) ([]byte, error) {
	var archive []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT archive FROM sectors WHERE guids = ? AND timestamp = ?`,
		id.Key(),
		id.Timestamp,
	).Scan(&archive)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = errors.New("sector archive not found").
			WithType(ErrTypeNotFound).
			WithTag("sector", id.String()).
			WithTag("timestamp", id.Timestamp)

	case err != nil:
		err = errors.New("reading sector archive failed").
			WithTag("sector", id.String()).
			Wrap(err)
	}

	instrumentOperation("get", err)
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// List returns every stored archive ordered by identity.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guids, timestamp, kind, cell_count, length(archive), updated_at
		FROM sectors
		ORDER BY guids, timestamp`,
	)
	if err != nil {
		instrumentOperation("list", err)
		return nil, errors.New("listing sector archives failed").Wrap(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			guids     string
			timestamp int64
			updatedAt string
			e         Entry
		)
		if err := rows.Scan(&guids, &timestamp, &e.Kind, &e.CellCount, &e.Size, &updatedAt); err != nil {
			instrumentOperation("list", err)
			return nil, errors.New("scanning sector archive row failed").Wrap(err)
		}

		if e.Identity, err = parseIdentity(guids, timestamp); err != nil {
			instrumentOperation("list", err)
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		entries = append(entries, e)
	}

	err = rows.Err()
	instrumentOperation("list", err)
	if err != nil {
		return nil, errors.New("listing sector archives failed").Wrap(err)
	}
	return entries, nil
}

// Delete removes the archive of the sector with the given identity.
func (s *Store) Delete(ctx context.Context, id sector.Identity) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sectors WHERE guids = ? AND timestamp = ?`,
		id.Key(),
		id.Timestamp,
	)
	if err != nil {
		err = errors.New("deleting sector archive failed").
			WithTag("sector", id.String()).
			Wrap(err)
		instrumentOperation("delete", err)
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		err = errors.New("sector archive not found").
			WithType(ErrTypeNotFound).
			WithTag("sector", id.String()).
			WithTag("timestamp", id.Timestamp)
	}
	instrumentOperation("delete", err)
	return err
}

func parseIdentity(key string, timestamp int64) (sector.Identity, error) {
	parts := strings.Split(key, "+")
	guids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		g, err := uuid.Parse(p)
		if err != nil {
			return sector.Identity{}, errors.New("stored sector has a bad guid").
				WithTag("guid", p).
				Wrap(err)
		}
		guids = append(guids, g)
	}
	return sector.NewIdentity(timestamp, guids...), nil
}
