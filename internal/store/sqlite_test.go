package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagepubs/pubsync/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func coord(f float64) *float64 { return &f }

func TestSQLiteStore_CreateAndList(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	p := &model.Pub{
		ExternalID:  "7",
		ContentHash: "abc123",
		Name:        "The Crown",
		Address:     "10 High Street",
		Description: "Victorian corner pub",
		Tier:        3,
		ListedGrade: "II",
		Open:        true,
		Latitude:    coord(51.5072),
		Longitude:   coord(-0.1276),
		URL:         "https://pubheritage.example/pubs/7",
	}
	require.NoError(t, s.CreatePub(ctx, p))
	assert.NotEmpty(t, p.CatalogID, "catalog ID assigned on insert")
	assert.False(t, p.CreatedAt.IsZero())

	pubs, err := s.ListPubs(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	got := pubs[0]
	assert.Equal(t, p.CatalogID, got.CatalogID)
	assert.Equal(t, "7", got.ExternalID)
	assert.Equal(t, "abc123", got.ContentHash)
	assert.Equal(t, "The Crown", got.Name)
	assert.Equal(t, 3, got.Tier)
	assert.True(t, got.Open)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 51.5072, *got.Latitude, 1e-9)
}

func TestSQLiteStore_NilCoordinatesRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	p := &model.Pub{ContentHash: "h", Name: "The Anchor", Address: "1 Quay Street"}
	require.NoError(t, s.CreatePub(ctx, p))

	pubs, err := s.ListPubs(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Nil(t, pubs[0].Latitude)
	assert.Nil(t, pubs[0].Longitude)
}

func TestSQLiteStore_DuplicateExternalIDRejected(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePub(ctx, &model.Pub{ExternalID: "7", ContentHash: "h", Name: "A", Address: "1 A St"}))
	err := s.CreatePub(ctx, &model.Pub{ExternalID: "7", ContentHash: "h", Name: "B", Address: "2 B St"})
	require.Error(t, err)
}

func TestSQLiteStore_BlankExternalIDsMayRepeat(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePub(ctx, &model.Pub{ContentHash: "h", Name: "A", Address: "1 A St"}))
	require.NoError(t, s.CreatePub(ctx, &model.Pub{ContentHash: "h", Name: "B", Address: "2 B St"}))

	pubs, err := s.ListPubs(ctx)
	require.NoError(t, err)
	assert.Len(t, pubs, 2)
}

func TestSQLiteStore_UpdatePub(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	p := &model.Pub{ContentHash: "h", Name: "The Crown", Address: "10 High Street", Tier: 2}
	require.NoError(t, s.CreatePub(ctx, p))

	err := s.UpdatePub(ctx, p.CatalogID, map[string]any{
		"tier":     3,
		"open":     false,
		"latitude": 51.5072,
	})
	require.NoError(t, err)

	pubs, err := s.ListPubs(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, 3, pubs[0].Tier)
	assert.False(t, pubs[0].Open)
	require.NotNil(t, pubs[0].Latitude)
	assert.InDelta(t, 51.5072, *pubs[0].Latitude, 1e-9)
	assert.Equal(t, "The Crown", pubs[0].Name, "untouched columns preserved")
}

func TestSQLiteStore_UpdatePubRejectsUnknownColumn(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.UpdatePub(context.Background(), "any", map[string]any{"catalog_id": "evil"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to update")
}

func TestSQLiteStore_UpdatePubNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.UpdatePub(context.Background(), "missing", map[string]any{"tier": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_UpdatePubEmptyFieldsIsNoop(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.UpdatePub(context.Background(), "missing", nil))
}

func TestSQLiteStore_DeleteAllPubs(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, s.CreatePub(ctx, &model.Pub{ContentHash: "h", Name: name, Address: name + " St"}))
	}

	n, err := s.DeleteAllPubs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	pubs, err := s.ListPubs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestSQLiteStore_ChangeLogRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.ChangeRecord{
		CatalogID: "cat-a",
		Name:      "The Crown",
		Address:   "10 High Street",
		Fields:    []string{"tier", "open"},
		Tier:      &model.TierTransition{From: 2, To: 3},
		Open:      &model.OpenTransition{From: false, To: true},
	}
	require.NoError(t, s.AppendChange(ctx, c))
	assert.NotZero(t, c.ID)

	changes, err := s.ListChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	got := changes[0]
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "cat-a", got.CatalogID)
	assert.Equal(t, []string{"tier", "open"}, got.Fields)
	require.NotNil(t, got.Tier)
	assert.Equal(t, 2, got.Tier.From)
	assert.Equal(t, 3, got.Tier.To)
	require.NotNil(t, got.Open)
	assert.False(t, got.Open.From)
	assert.True(t, got.Open.To)
	assert.False(t, got.Timestamp.IsZero())
}

func TestSQLiteStore_ChangeLogWithoutTransitions(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.ChangeRecord{CatalogID: "cat-a", Fields: []string{"description"}}
	require.NoError(t, s.AppendChange(ctx, c))

	changes, err := s.ListChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].Tier)
	assert.Nil(t, changes[0].Open)
}

func TestSQLiteStore_ListChangesNewestFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"cat-a", "cat-b", "cat-c"} {
		require.NoError(t, s.AppendChange(ctx, &model.ChangeRecord{CatalogID: id, Fields: []string{"name"}}))
	}

	changes, err := s.ListChanges(ctx, 2)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "cat-c", changes[0].CatalogID)
	assert.Equal(t, "cat-b", changes[1].CatalogID)
}
