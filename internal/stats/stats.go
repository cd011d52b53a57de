// Package stats computes per-tier catalog statistics and before/after
// deltas. All functions are pure so the reporter can run standalone for
// dry runs.
package stats

import "github.com/heritagepubs/pubsync/internal/model"

// Tiers lists the classification tiers in reporting order.
var Tiers = []int{0, 1, 2, 3}

// TierCount holds the totals for one tier.
type TierCount struct {
	Total int `json:"total"`
	Open  int `json:"open"`
}

// Snapshot is the per-tier breakdown of one catalog state.
type Snapshot map[int]TierCount

// Compute builds a snapshot from catalog entries.
func Compute(pubs []*model.Pub) Snapshot {
	s := make(Snapshot, len(Tiers))
	for _, tier := range Tiers {
		s[tier] = TierCount{}
	}
	for _, p := range pubs {
		c := s[p.Tier]
		c.Total++
		if p.Open {
			c.Open++
		}
		s[p.Tier] = c
	}
	return s
}

// ComputeVenues builds a snapshot from an incoming batch, for reporting the
// batch's own tier breakdown alongside the catalog's.
func ComputeVenues(venues []model.Venue) Snapshot {
	s := make(Snapshot, len(Tiers))
	for _, tier := range Tiers {
		s[tier] = TierCount{}
	}
	for _, v := range venues {
		c := s[v.Tier]
		c.Total++
		if v.Open {
			c.Open++
		}
		s[v.Tier] = c
	}
	return s
}

// Delta is the signed per-tier difference between two snapshots.
type Delta map[int]TierCount

// Diff computes after minus before, per tier and metric.
func Diff(before, after Snapshot) Delta {
	d := make(Delta, len(Tiers))
	for _, tier := range Tiers {
		d[tier] = TierCount{
			Total: after[tier].Total - before[tier].Total,
			Open:  after[tier].Open - before[tier].Open,
		}
	}
	return d
}
