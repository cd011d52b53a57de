// Package store persists the pub catalog and its change log. Two backends
// are provided: SQLite for single-operator use and Postgres for the shared
// deployment.
package store

import (
	"context"

	"github.com/heritagepubs/pubsync/internal/model"
)

// Store defines the persistence interface for the catalog.
type Store interface {
	// Catalog
	ListPubs(ctx context.Context) ([]model.Pub, error)
	CreatePub(ctx context.Context, p *model.Pub) error
	UpdatePub(ctx context.Context, catalogID string, fields map[string]any) error
	DeleteAllPubs(ctx context.Context) (int64, error)

	// Change log
	AppendChange(ctx context.Context, c *model.ChangeRecord) error
	ListChanges(ctx context.Context, limit int) ([]model.ChangeRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// updatableColumns is the allowlist of columns UpdatePub may touch. Field
// maps come from the merge engine; anything outside this set is a bug.
var updatableColumns = map[string]bool{
	"name":         true,
	"address":      true,
	"description":  true,
	"tier":         true,
	"listed_grade": true,
	"open":         true,
	"url":          true,
	"external_id":  true,
	"latitude":     true,
	"longitude":    true,
}
