// Package catalog keeps an optional sqlite log of capture rounds and the
// files they produced, so a dataset can be audited without walking the
// camera directories.
package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	round_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	stem       TEXT NOT NULL,
	scene      INTEGER NOT NULL,
	bracket    TEXT NOT NULL,
	ok         INTEGER NOT NULL,
	error      TEXT,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
	round_id INTEGER NOT NULL,
	path     TEXT NOT NULL,
	FOREIGN KEY(round_id) REFERENCES rounds(round_id)
);
CREATE INDEX IF NOT EXISTS idx_rounds_run ON rounds(run_id);
`

// Round is one recorded capture round.
type Round struct {
	RunID     string
	Stem      string
	Scene     int
	Bracket   string
	OK        bool
	Err       string
	Files     []string
	CreatedAt time.Time
}

// Catalog is a sqlite-backed round log.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open catalog")
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, pkgerrors.Wrapf(err, "catalog %s", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "create catalog schema")
	}
	return &Catalog{db: db}, nil
}

// Record stores a round and its files in one transaction.
func (c *Catalog) Record(ctx context.Context, r Round) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin catalog transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var errText interface{}
	if r.Err != "" {
		errText = r.Err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO rounds (run_id, stem, scene, bracket, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Stem, r.Scene, r.Bracket, r.OK, errText, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "insert round")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return pkgerrors.Wrap(err, "round id")
	}
	for _, p := range r.Files {
		if _, err := tx.ExecContext(ctx, `INSERT INTO files (round_id, path) VALUES (?, ?)`, id, p); err != nil {
			return pkgerrors.Wrapf(err, "insert file %s", p)
		}
	}
	return tx.Commit()
}

// Rounds returns the rounds of a run in insertion order.
func (c *Catalog) Rounds(ctx context.Context, runID string) ([]Round, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT r.round_id, r.run_id, r.stem, r.scene, r.bracket, r.ok, COALESCE(r.error, ''), r.created_at,
		       COALESCE(GROUP_CONCAT(f.path, char(10)), '')
		FROM rounds r LEFT JOIN files f ON f.round_id = r.round_id
		WHERE r.run_id = ?
		GROUP BY r.round_id
		ORDER BY r.round_id`, runID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query rounds")
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var (
			r       Round
			id      int64
			created int64
			files   string
		)
		if err := rows.Scan(&id, &r.RunID, &r.Stem, &r.Scene, &r.Bracket, &r.OK, &r.Err, &created, &files); err != nil {
			return nil, pkgerrors.Wrap(err, "scan round")
		}
		r.CreatedAt = time.Unix(0, created)
		if files != "" {
			r.Files = strings.Split(files, "\n")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
