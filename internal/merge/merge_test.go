package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/resolve"
)

func ptr(f float64) *float64 { return &f }

func basePub() *model.Pub {
	return &model.Pub{
		CatalogID:   "cat-a",
		ExternalID:  "7",
		Name:        "The Crown",
		Address:     "10 High Street",
		Description: "Victorian corner pub",
		Tier:        2,
		ListedGrade: "II",
		Open:        true,
		URL:         "https://pubheritage.example/pubs/7",
	}
}

func venueFrom(p *model.Pub) model.Venue {
	return model.Venue{
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Address:     p.Address,
		Description: p.Description,
		Tier:        p.Tier,
		ListedGrade: p.ListedGrade,
		Open:        p.Open,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		URL:         p.URL,
	}
}

func TestApply_IdenticalRecordIsUnchanged(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	res, err := Apply(p, venueFrom(p), idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Empty(t, res.Fields)
	assert.Nil(t, res.Change)
}

func TestApply_StagesOnlyDirtyFields(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Description = "Rebuilt Victorian corner pub"
	v.ListedGrade = "II*"

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, map[string]any{
		"description":  "Rebuilt Victorian corner pub",
		"listed_grade": "II*",
	}, res.Fields)
	require.NotNil(t, res.Change)
	assert.ElementsMatch(t, []string{"description", "listed_grade"}, res.Change.Fields)
	assert.Nil(t, res.Change.Tier)
	assert.Nil(t, res.Change.Open)
	assert.False(t, res.Change.Timestamp.IsZero())

	res.Commit(p)
	assert.Equal(t, "Rebuilt Victorian corner pub", p.Description)
	assert.Equal(t, "II*", p.ListedGrade)
	assert.Equal(t, res.Change.Timestamp, p.UpdatedAt)
}

func TestApply_EntryUntouchedUntilCommit(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Tier = 3
	v.Name = "The Crown Inn"

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)

	// Until the store accepts the write the entry still mirrors the catalog.
	assert.Equal(t, "The Crown", p.Name)
	assert.Equal(t, 2, p.Tier)

	res.Commit(p)
	assert.Equal(t, "The Crown Inn", p.Name)
	assert.Equal(t, 3, p.Tier)
}

func TestApply_BlankExternalIDNeverErases(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.ExternalID = ""
	v.Name = "The Crown Inn"

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.NotContains(t, res.Fields, "external_id")

	res.Commit(p)
	assert.Equal(t, "7", p.ExternalID)
	assert.Equal(t, "The Crown Inn", p.Name)
}

func TestApply_SetsExternalIDWhenUnclaimed(t *testing.T) {
	p := basePub()
	p.ExternalID = ""
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.ExternalID = "42"

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, "42", res.Fields["external_id"])

	res.Commit(p)
	assert.Equal(t, "42", p.ExternalID)
}

func TestApply_ExternalIDConflictAbortsUntouched(t *testing.T) {
	owner := &model.Pub{CatalogID: "cat-owner", ExternalID: "42", Name: "The Ship", Address: "3 Dock Road"}
	p := basePub()
	p.ExternalID = ""
	idx := resolve.NewIndex([]*model.Pub{owner, p})

	v := venueFrom(p)
	v.ExternalID = "42"
	v.Name = "The Crown Inn"

	_, err := Apply(p, v, idx)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "42", conflict.ExternalID)
	assert.Equal(t, "cat-a", conflict.CatalogID)
	assert.Equal(t, "cat-owner", conflict.OwnerID)

	assert.Equal(t, "The Crown", p.Name, "entry untouched after conflict")
	assert.Equal(t, "", p.ExternalID)
}

func TestApply_SameExternalIDIsNotAConflict(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	res, err := Apply(p, venueFrom(p), idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestApply_CoordinatesFillOnce(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Latitude = ptr(51.5072)
	v.Longitude = ptr(-0.1276)

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Contains(t, res.Fields, "latitude")
	assert.Contains(t, res.Fields, "longitude")

	res.Commit(p)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 51.5072, *p.Latitude, 1e-9)
}

func TestApply_CoordinatesNeverOverwritten(t *testing.T) {
	p := basePub()
	p.Latitude = ptr(51.5072)
	p.Longitude = ptr(-0.1276)
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Latitude = ptr(53.4808)
	v.Longitude = ptr(-2.2426)

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.InDelta(t, 51.5072, *p.Latitude, 1e-9)
	assert.InDelta(t, -0.1276, *p.Longitude, 1e-9)
}

func TestApply_PromotionTransition(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Tier = 3

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	require.NotNil(t, res.Change)
	require.NotNil(t, res.Change.Tier)
	assert.Equal(t, 2, res.Change.Tier.From)
	assert.Equal(t, 3, res.Change.Tier.To)
	assert.Nil(t, res.Change.Open)
	assert.Equal(t, 3, res.Fields["tier"])
}

func TestApply_DemotionWithClosure(t *testing.T) {
	p := basePub()
	p.Tier = 3
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Tier = 1
	v.Open = false

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	require.NotNil(t, res.Change.Tier)
	assert.Equal(t, 3, res.Change.Tier.From)
	assert.Equal(t, 1, res.Change.Tier.To)
	require.NotNil(t, res.Change.Open)
	assert.True(t, res.Change.Open.From)
	assert.False(t, res.Change.Open.To)
}

func TestApply_TierChangeWithinLowerTiersNotATransition(t *testing.T) {
	p := basePub()
	p.Tier = 1
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Tier = 2

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Nil(t, res.Change.Tier, "1 to 2 is not a top-tier transition")
	assert.Equal(t, 2, res.Fields["tier"])
}

func TestApply_ClosureOutsideTopTierNotLogWorthy(t *testing.T) {
	p := basePub()
	p.Tier = 1
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Open = false

	res, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Nil(t, res.Change.Open)
	assert.Equal(t, false, res.Fields["open"])
	assert.Empty(t, res.Change.Lines())
}

func TestApply_Idempotent(t *testing.T) {
	p := basePub()
	idx := resolve.NewIndex([]*model.Pub{p})

	v := venueFrom(p)
	v.Tier = 3
	v.Description = "Rebuilt Victorian corner pub"

	first, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, first.Outcome)
	first.Commit(p)

	second, err := Apply(p, v, idx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, second.Outcome)
	assert.Nil(t, second.Change)
}
