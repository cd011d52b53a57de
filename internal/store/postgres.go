package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/heritagepubs/pubsync/internal/db"
	"github.com/heritagepubs/pubsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool creates a PostgresStore from an existing pool.
// Used by tests to substitute a mock pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pubs (
	catalog_id   TEXT PRIMARY KEY,
	external_id  TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	tier         INTEGER NOT NULL DEFAULT 0,
	listed_grade TEXT NOT NULL DEFAULT '',
	open         BOOLEAN NOT NULL DEFAULT TRUE,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	url          TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pubs_external_id ON pubs(external_id) WHERE external_id != '';
CREATE INDEX IF NOT EXISTS idx_pubs_address ON pubs(address);
CREATE INDEX IF NOT EXISTS idx_pubs_tier ON pubs(tier);

CREATE TABLE IF NOT EXISTS change_log (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	catalog_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	fields     JSONB NOT NULL,
	tier_from  INTEGER,
	tier_to    INTEGER,
	open_from  BOOLEAN,
	open_to    BOOLEAN,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_change_log_catalog_id ON change_log(catalog_id);
CREATE INDEX IF NOT EXISTS idx_change_log_created_at ON change_log(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListPubs(ctx context.Context) ([]model.Pub, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT catalog_id, external_id, content_hash, name, address, description,
		        tier, listed_grade, open, latitude, longitude, url, created_at, updated_at
		 FROM pubs ORDER BY catalog_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pubs")
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
			return nil, eris.Wrap(err, "postgres: scan pub")
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

func (s *PostgresStore) CreatePub(ctx context.Context, p *model.Pub) error {
	if p.CatalogID == "" {
		p.CatalogID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pubs (catalog_id, external_id, content_hash, name, address, description,
		                   tier, listed_grade, open, latitude, longitude, url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.CatalogID, p.ExternalID, p.ContentHash, p.Name, p.Address, p.Description,
		p.Tier, p.ListedGrade, p.Open, p.Latitude, p.Longitude, p.URL,
		p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert pub %s", p.Name)
}

func (s *PostgresStore) UpdatePub(ctx context.Context, catalogID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return eris.Errorf("postgres: refusing to update column %q", col)
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
		fmt.Fprintf(&sb, "%s = $%d", col, i+1)
		args = append(args, fields[col])
	}
	fmt.Fprintf(&sb, ", updated_at = $%d WHERE catalog_id = $%d", len(cols)+1, len(cols)+2)
	args = append(args, time.Now().UTC(), catalogID)

	tag, err := s.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update pub %s", catalogID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: pub %s not found", catalogID)
	}
	return nil
}

func (s *PostgresStore) DeleteAllPubs(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pubs`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all pubs")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) AppendChange(ctx context.Context, c *model.ChangeRecord) error {
	fieldsJSON, err := json.Marshal(c.Fields)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal change fields")
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

	err = s.pool.QueryRow(ctx,
		`INSERT INTO change_log (catalog_id, name, address, fields, tier_from, tier_to, open_from, open_to, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		c.CatalogID, c.Name, c.Address, fieldsJSON,
		tierFrom, tierTo, openFrom, openTo, ts,
	).Scan(&c.ID)
	return eris.Wrapf(err, "postgres: insert change for %s", c.CatalogID)
}

func (s *PostgresStore) ListChanges(ctx context.Context, limit int) ([]model.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, catalog_id, name, address, fields, tier_from, tier_to, open_from, open_to, created_at
		 FROM change_log ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list changes")
	}
	defer rows.Close()

	var changes []model.ChangeRecord
	for rows.Next() {
		var c model.ChangeRecord
		var fieldsJSON []byte
		var tierFrom, tierTo *int
		var openFrom, openTo *bool
		if err := rows.Scan(
			&c.ID, &c.CatalogID, &c.Name, &c.Address, &fieldsJSON,
			&tierFrom, &tierTo, &openFrom, &openTo, &c.Timestamp,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan change")
		}
		if err := json.Unmarshal(fieldsJSON, &c.Fields); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal change fields")
		}
		if tierFrom != nil && tierTo != nil {
			c.Tier = &model.TierTransition{From: *tierFrom, To: *tierTo}
		}
		if openFrom != nil && openTo != nil {
			c.Open = &model.OpenTransition{From: *openFrom, To: *openTo}
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
