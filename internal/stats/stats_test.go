package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagepubs/pubsync/internal/model"
)

func TestCompute(t *testing.T) {
	pubs := []*model.Pub{
		{Tier: 3, Open: true},
		{Tier: 3, Open: false},
		{Tier: 1, Open: true},
		{Tier: 0, Open: true},
	}

	s := Compute(pubs)
	assert.Equal(t, TierCount{Total: 2, Open: 1}, s[3])
	assert.Equal(t, TierCount{Total: 0, Open: 0}, s[2])
	assert.Equal(t, TierCount{Total: 1, Open: 1}, s[1])
	assert.Equal(t, TierCount{Total: 1, Open: 1}, s[0])
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	for _, tier := range Tiers {
		assert.Equal(t, TierCount{}, s[tier])
	}
}

func TestComputeVenues(t *testing.T) {
	venues := []model.Venue{
		{Tier: 3, Open: true},
		{Tier: 2, Open: false},
	}
	s := ComputeVenues(venues)
	assert.Equal(t, TierCount{Total: 1, Open: 1}, s[3])
	assert.Equal(t, TierCount{Total: 1, Open: 0}, s[2])
}

func TestDiff(t *testing.T) {
	before := Compute([]*model.Pub{
		{Tier: 3, Open: true},
		{Tier: 2, Open: true},
	})
	after := Compute([]*model.Pub{
		{Tier: 3, Open: true},
		{Tier: 3, Open: false},
	})

	d := Diff(before, after)
	assert.Equal(t, TierCount{Total: 1, Open: 0}, d[3])
	assert.Equal(t, TierCount{Total: -1, Open: -1}, d[2])
	assert.Equal(t, TierCount{Total: 0, Open: 0}, d[0])
}

func TestLines(t *testing.T) {
	before := Compute([]*model.Pub{{Tier: 3, Open: true}})
	after := Compute([]*model.Pub{
		{Tier: 3, Open: true},
		{Tier: 3, Open: true},
	})

	lines := Lines(before, after)
	require.Len(t, lines, len(Tiers))
	assert.Equal(t, "  0★ total: 0 → 0 (+0), open: 0 → 0 (+0)", lines[0])
	assert.Equal(t, "  3★ total: 1 → 2 (+1), open: 1 → 2 (+1)", lines[3])
}

func TestSnapshotLines(t *testing.T) {
	s := Compute([]*model.Pub{{Tier: 2, Open: false}})
	lines := SnapshotLines(s)
	require.Len(t, lines, len(Tiers))
	assert.Equal(t, "  2★ total=1 open=0", lines[2])
}

func TestRenderReport(t *testing.T) {
	before := Compute(nil)
	after := Compute([]*model.Pub{{Tier: 3, Open: true}})

	out := RenderReport(before, after)
	assert.Contains(t, out, "TIER")
	assert.Contains(t, out, "+1")
}

func TestRenderSnapshot(t *testing.T) {
	out := RenderSnapshot("Catalog", Compute(nil))
	assert.Contains(t, out, "Catalog")
	assert.Contains(t, out, "OPEN")
}
