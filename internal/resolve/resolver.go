package resolve

import (
	"github.com/heritagepubs/pubsync/internal/config"
	"github.com/heritagepubs/pubsync/internal/model"
)

// tierFunc is one match tier: a pure function over the record and the
// current indices. ok=false means the tier declined and the next one runs.
type tierFunc func(v model.Venue, idx *Index) (model.Match, bool)

// Resolver finds the catalog entry an incoming record corresponds to.
// Resolution is deterministic and never mutates the index: resolving the
// same record twice against the same snapshot yields identical results.
type Resolver struct {
	cfg   config.ResolverConfig
	tiers []tierFunc
}

// New creates a Resolver. Zero-value thresholds fall back to the standard
// defaults (auto 95, lower bound 60, 6 candidates).
func New(cfg config.ResolverConfig) *Resolver {
	if cfg.AutoThreshold <= 0 {
		cfg.AutoThreshold = 95
	}
	if cfg.LowerBound <= 0 {
		cfg.LowerBound = 60
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 6
	}
	r := &Resolver{cfg: cfg}
	r.tiers = []tierFunc{
		matchExactID,
		matchExactAddress,
		r.matchFuzzy,
	}
	return r
}

// Resolve runs the match tiers in strict order; the first tier that
// produces a result wins and no lower tier is attempted.
func (r *Resolver) Resolve(v model.Venue, idx *Index) model.Match {
	for _, tier := range r.tiers {
		if m, ok := tier(v, idx); ok {
			return m
		}
	}
	return model.Match{Type: model.MatchNone}
}

// matchExactID matches on the source-provided external identifier.
func matchExactID(v model.Venue, idx *Index) (model.Match, bool) {
	p, ok := idx.ByExternalID(v.ExternalID)
	if !ok {
		return model.Match{}, false
	}
	return model.Match{Type: model.MatchExactID, CatalogID: p.CatalogID}, true
}

// matchExactAddress matches on the exact canonical address.
func matchExactAddress(v model.Venue, idx *Index) (model.Match, bool) {
	p, ok := idx.ByAddress(v.Address)
	if !ok {
		return model.Match{}, false
	}
	return model.Match{Type: model.MatchExactAddress, CatalogID: p.CatalogID}, true
}

// matchFuzzy scores the record against every catalog entry. Best score at
// or above the auto threshold is a confident match; scores in
// [lower bound, auto) surface the top candidates for disambiguation.
func (r *Resolver) matchFuzzy(v model.Venue, idx *Index) (model.Match, bool) {
	ranked := rankCandidates(v, idx.All(), r.cfg.LowerBound)
	if len(ranked) == 0 {
		return model.Match{}, false
	}

	best := ranked[0]
	if best.Score >= r.cfg.AutoThreshold {
		return model.Match{
			Type:      model.MatchFuzzy,
			CatalogID: best.CatalogID,
			Score:     best.Score,
		}, true
	}

	top := ranked
	if len(top) > r.cfg.MaxCandidates {
		top = top[:r.cfg.MaxCandidates]
	}
	return model.Match{Type: model.MatchAmbiguous, Candidates: top}, true
}
