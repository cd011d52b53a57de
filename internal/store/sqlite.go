package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/heritagepubs/pubsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pubs (
	catalog_id   TEXT PRIMARY KEY,
	external_id  TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	tier         INTEGER NOT NULL DEFAULT 0,
	listed_grade TEXT NOT NULL DEFAULT '',
	open         INTEGER NOT NULL DEFAULT 1,
	latitude     REAL,
	longitude    REAL,
	url          TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pubs_external_id ON pubs(external_id) WHERE external_id != '';
CREATE INDEX IF NOT EXISTS idx_pubs_address ON pubs(address);
CREATE INDEX IF NOT EXISTS idx_pubs_tier ON pubs(tier);

CREATE TABLE IF NOT EXISTS change_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	catalog_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	fields     TEXT NOT NULL,
	tier_from  INTEGER,
	tier_to    INTEGER,
	open_from  INTEGER,
	open_to    INTEGER,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_change_log_catalog_id ON change_log(catalog_id);
CREATE INDEX IF NOT EXISTS idx_change_log_created_at ON change_log(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const pubColumns = `catalog_id, external_id, content_hash, name, address, description,
	tier, listed_grade, open, latitude, longitude, url, created_at, updated_at`

func (s *SQLiteStore) ListPubs(ctx context.Context) ([]model.Pub, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pubColumns+` FROM pubs ORDER BY catalog_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pubs")
	}
	defer rows.Close()

	var pubs []model.Pub
	for rows.Next() {
		var p model.Pub
		if err := rows.Scan(
			&p.CatalogID, &p.ExternalID, &p.ContentHash, &p.Name, &p.Address, &p.Description,
			&p.Tier, &p.ListedGrade, &p.Open, &p.Latitude, &p.Longitude, &p.URL,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pub")
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

func (s *SQLiteStore) CreatePub(ctx context.Context, p *model.Pub) error {
	if p.CatalogID == "" {
		p.CatalogID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pubs (`+pubColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CatalogID, p.ExternalID, p.ContentHash, p.Name, p.Address, p.Description,
		p.Tier, p.ListedGrade, p.Open, p.Latitude, p.Longitude, p.URL,
		p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert pub %s", p.Name)
}

func (s *SQLiteStore) UpdatePub(ctx context.Context, catalogID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return eris.Errorf("sqlite: refusing to update column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	sb.WriteString("UPDATE pubs SET ")
	args := make([]any, 0, len(cols)+2)
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = ?", col)
		args = append(args, fields[col])
	}
	sb.WriteString(", updated_at = ? WHERE catalog_id = ?")
	args = append(args, time.Now().UTC(), catalogID)

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update pub %s", catalogID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: pub %s not found", catalogID)
	}
	return nil
}

func (s *SQLiteStore) DeleteAllPubs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pubs`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all pubs")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AppendChange(ctx context.Context, c *model.ChangeRecord) error {
	fieldsJSON, err := json.Marshal(c.Fields)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal change fields")
	}

	var tierFrom, tierTo *int
	if c.Tier != nil {
		tierFrom, tierTo = &c.Tier.From, &c.Tier.To
	}
	var openFrom, openTo *bool
	if c.Open != nil {
		openFrom, openTo = &c.Open.From, &c.Open.To
	}
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO change_log (catalog_id, name, address, fields, tier_from, tier_to, open_from, open_to, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CatalogID, c.Name, c.Address, string(fieldsJSON),
		tierFrom, tierTo, openFrom, openTo, ts,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert change for %s", c.CatalogID)
	}
	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListChanges(ctx context.Context, limit int) ([]model.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, catalog_id, name, address, fields, tier_from, tier_to, open_from, open_to, created_at
		 FROM change_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list changes")
	}
	defer rows.Close()

	var changes []model.ChangeRecord
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (model.ChangeRecord, error) {
	var c model.ChangeRecord
	var fieldsJSON string
	var tierFrom, tierTo *int
	var openFrom, openTo *bool

	if err := row.Scan(
		&c.ID, &c.CatalogID, &c.Name, &c.Address, &fieldsJSON,
		&tierFrom, &tierTo, &openFrom, &openTo, &c.Timestamp,
	); err != nil {
		return c, eris.Wrap(err, "sqlite: scan change")
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &c.Fields); err != nil {
		return c, eris.Wrap(err, "sqlite: unmarshal change fields")
	}
	if tierFrom != nil && tierTo != nil {
		c.Tier = &model.TierTransition{From: *tierFrom, To: *tierTo}
	}
	if openFrom != nil && openTo != nil {
		c.Open = &model.OpenTransition{From: *openFrom, To: *openTo}
	}
	return c, nil
}
