package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog indexes runs in sqlite so they can be listed and ranked without
// reading every metadata file.
type Catalog struct {
	db   *sql.DB
	path string
}

type CatalogEntry struct {
	ID         string
	Preset     string
	CreatedAt  time.Time
	Integrator string
	Tension    float64
	Friction   float64
	Axes       int
	Steps      int
	Settled    bool
	SettleTime float64
	Overshoot  float64
}

// Orderings accepted by Catalog.List.
const (
	ByTime      = "time"
	BySettle    = "settle"
	ByOvershoot = "overshoot"
)

var orderClauses = map[string]string{
	ByTime:      `created_at DESC, id`,
	BySettle:    `settled DESC, settle_time ASC, id`,
	ByOvershoot: `overshoot ASC, id`,
}

func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrateCatalog(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Catalog{db: db, path: path}, nil
}

func migrateCatalog(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			preset TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			integrator TEXT NOT NULL DEFAULT '',
			tension REAL NOT NULL,
			friction REAL NOT NULL,
			axes INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			settled INTEGER NOT NULL,
			settle_time REAL NOT NULL DEFAULT -1,
			overshoot REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS runs_created ON runs(created_at);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("catalog migration failed: %w", err)
		}
	}
	return nil
}

func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Record inserts or replaces the entry for meta.ID.
func (c *Catalog) Record(meta RunMetadata) error {
	return recordRun(c.db, meta)
}

func recordRun(db execer, meta RunMetadata) error {
	if meta.ID == "" {
		return errors.New("run without id")
	}
	settle, ok := meta.Metrics["settle_time"]
	if !ok {
		settle = -1
	}
	_, err := db.Exec(`INSERT INTO runs
		(id, preset, created_at, integrator, tension, friction, axes, steps, settled, settle_time, overshoot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			preset = excluded.preset,
			created_at = excluded.created_at,
			integrator = excluded.integrator,
			tension = excluded.tension,
			friction = excluded.friction,
			axes = excluded.axes,
			steps = excluded.steps,
			settled = excluded.settled,
			settle_time = excluded.settle_time,
			overshoot = excluded.overshoot`,
		meta.ID, meta.Preset, meta.Timestamp.UnixNano(), meta.Integrator,
		meta.Tension, meta.Friction, meta.Axes(), meta.Steps, meta.Settled,
		settle, meta.Metrics["overshoot"])
	return err
}

// Reindex replaces the catalog contents with runs. On failure the previous
// contents are kept.
func (c *Catalog) Reindex(runs []RunMetadata) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, meta := range runs {
		if err := recordRun(tx, meta); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run %s: %w", meta.ID, err)
		}
	}
	return tx.Commit()
}

func (c *Catalog) Remove(id string) error {
	_, err := c.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	return err
}

// List returns up to limit entries in the given order. A limit of zero or
// less returns everything.
func (c *Catalog) List(order string, limit int) ([]CatalogEntry, error) {
	clause, ok := orderClauses[order]
	if !ok {
		return nil, fmt.Errorf("unknown ordering: %s", order)
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := c.db.Query(`SELECT id, preset, created_at, integrator, tension, friction,
		axes, steps, settled, settle_time, overshoot
		FROM runs ORDER BY `+clause+` LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var (
			e       CatalogEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Preset, &created, &e.Integrator, &e.Tension, &e.Friction,
			&e.Axes, &e.Steps, &e.Settled, &e.SettleTime, &e.Overshoot); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
