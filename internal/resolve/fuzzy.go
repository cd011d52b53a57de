package resolve

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/heritagepubs/pubsync/internal/model"
)

// Score computes the order-insensitive similarity ratio between an incoming
// record and a catalog entry on the 0-100 scale, over the "name address"
// concatenation both sides use.
func Score(v model.Venue, p *model.Pub) int {
	return fuzzy.TokenSortRatio(v.SearchKey(), p.SearchKey())
}

// rankCandidates scores every catalog entry against the record and returns
// the ones clearing the lower bound, sorted by score descending. Equal
// scores rank the lexicographically smaller catalog ID first, so the
// ordering is stable across runs.
func rankCandidates(v model.Venue, pubs []*model.Pub, lowerBound int) []model.Candidate {
	var out []model.Candidate
	for _, p := range pubs {
		s := Score(v, p)
		if s < lowerBound {
			continue
		}
		out = append(out, model.Candidate{
			CatalogID: p.CatalogID,
			Name:      p.Name,
			Address:   p.Address,
			Score:     s,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CatalogID < out[j].CatalogID
	})

	return out
}
