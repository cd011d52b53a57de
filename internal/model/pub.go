package model

import "time"

// Tier bounds for the heritage inventory classification.
const (
	TierUnclassified = 0
	TierTop          = 3
)

// RawRecord is one entry of a scraper-produced JSON batch. Field types are
// deliberately loose: the legacy scraper emits free-text star labels and
// string coordinates, the newer one emits integers and floats, and several
// fields may be absent entirely.
type RawRecord struct {
	Name        string `json:"Pub Name"`
	Address     string `json:"Address"`
	Description string `json:"Description"`
	Stars       any    `json:"Inventory Stars"`
	Listed      string `json:"Listed"`
	Status      any    `json:"Status"`
	Open        any    `json:"Open"`
	URL         string `json:"Url"`
	ExternalID  string `json:"Camra ID"`
	Latitude    any    `json:"Latitude"`
	Longitude   any    `json:"Longitude"`
}

// Venue is a fully typed incoming record produced by the normalizer.
type Venue struct {
	ExternalID  string   `json:"external_id,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Tier        int      `json:"tier"`
	ListedGrade string   `json:"listed_grade"`
	Open        bool     `json:"open"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	URL         string   `json:"url"`
}

// Pub is a persistent catalog entry.
type Pub struct {
	CatalogID   string    `json:"catalog_id"`
	ExternalID  string    `json:"external_id,omitempty"`
	ContentHash string    `json:"content_hash"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	Tier        int       `json:"tier"`
	ListedGrade string    `json:"listed_grade"`
	Open        bool      `json:"open"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchKey is the concatenation fuzzy matching scores against.
func (p *Pub) SearchKey() string {
	return p.Name + " " + p.Address
}

// SearchKey is the incoming-side counterpart of Pub.SearchKey.
func (v *Venue) SearchKey() string {
	return v.Name + " " + v.Address
}
