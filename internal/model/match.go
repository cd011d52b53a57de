package model

// MatchType classifies how an incoming record was linked to the catalog.
type MatchType string

const (
	MatchExactID      MatchType = "exact_id"
	MatchExactAddress MatchType = "exact_address"
	MatchFuzzy        MatchType = "fuzzy"
	MatchNone         MatchType = "none"
	MatchAmbiguous    MatchType = "ambiguous"
)

// Candidate is one ranked fuzzy-match candidate.
type Candidate struct {
	CatalogID string `json:"catalog_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Score     int    `json:"score"`
}

// Match is the outcome of resolving one incoming record against the catalog.
// CatalogID is set for exact_id, exact_address and fuzzy; Score only for
// fuzzy; Candidates only for ambiguous (ranked descending by score, ties
// broken by lower catalog ID).
type Match struct {
	Type       MatchType   `json:"type"`
	CatalogID  string      `json:"catalog_id,omitempty"`
	Score      int         `json:"score,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matched reports whether the match identifies a single catalog entry.
func (m Match) Matched() bool {
	switch m.Type {
	case MatchExactID, MatchExactAddress, MatchFuzzy:
		return true
	}
	return false
}
