// Package resolve links incoming venue records to catalog entries using an
// ordered cascade of match tiers: exact external ID, exact address, then
// fuzzy text similarity.
package resolve

import "github.com/heritagepubs/pubsync/internal/model"

// Index holds the catalog lookup structures for one reconciliation session.
// It is built once from a snapshot and updated incrementally as the session
// creates entries, so a pub created mid-batch is visible to every later
// lookup and cannot be created twice from one batch.
type Index struct {
	byID   map[string]*model.Pub
	byAddr map[string]*model.Pub
	all    []*model.Pub
}

// NewIndex builds the lookup indices from a catalog snapshot.
func NewIndex(pubs []*model.Pub) *Index {
	idx := &Index{
		byID:   make(map[string]*model.Pub, len(pubs)),
		byAddr: make(map[string]*model.Pub, len(pubs)),
		all:    make([]*model.Pub, 0, len(pubs)),
	}
	for _, p := range pubs {
		idx.Add(p)
	}
	return idx
}

// Add incorporates a catalog entry into all lookup structures.
func (idx *Index) Add(p *model.Pub) {
	if p.ExternalID != "" {
		idx.byID[p.ExternalID] = p
	}
	if p.Address != "" {
		idx.byAddr[p.Address] = p
	}
	idx.all = append(idx.all, p)
}

// ByExternalID returns the entry holding the given external ID, if any.
func (idx *Index) ByExternalID(id string) (*model.Pub, bool) {
	if id == "" {
		return nil, false
	}
	p, ok := idx.byID[id]
	return p, ok
}

// ByAddress returns the entry with the exact (trimmed, case-sensitive)
// address, if any.
func (idx *Index) ByAddress(addr string) (*model.Pub, bool) {
	if addr == "" {
		return nil, false
	}
	p, ok := idx.byAddr[addr]
	return p, ok
}

// ByCatalogID scans for the entry with the given catalog ID.
func (idx *Index) ByCatalogID(id string) (*model.Pub, bool) {
	for _, p := range idx.all {
		if p.CatalogID == id {
			return p, true
		}
	}
	return nil, false
}

// All returns the full entry list in insertion order.
func (idx *Index) All() []*model.Pub {
	return idx.all
}

// Reindex refreshes the key mappings for an entry whose external ID or
// address changed during a merge. The stale address key is left in place
// only when another entry has since claimed it.
func (idx *Index) Reindex(p *model.Pub, oldExternalID, oldAddress string) {
	if oldExternalID != "" && oldExternalID != p.ExternalID {
		if cur, ok := idx.byID[oldExternalID]; ok && cur == p {
			delete(idx.byID, oldExternalID)
		}
	}
	if oldAddress != "" && oldAddress != p.Address {
		if cur, ok := idx.byAddr[oldAddress]; ok && cur == p {
			delete(idx.byAddr, oldAddress)
		}
	}
	if p.ExternalID != "" {
		idx.byID[p.ExternalID] = p
	}
	if p.Address != "" {
		idx.byAddr[p.Address] = p
	}
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.all)
}
