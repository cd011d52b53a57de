// Package merge computes and applies the minimal field updates when an
// incoming record has been matched to a catalog entry.
package merge

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/geo"
	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/resolve"
)

// Outcome distinguishes a real update from a no-op merge.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// ConflictError reports an attempt to set an external ID already owned by a
// different catalog entry. The merge is aborted and the entry untouched.
type ConflictError struct {
	ExternalID string
	CatalogID  string
	OwnerID    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge: external ID %q already assigned to entry %s (merging into %s)",
		e.ExternalID, e.OwnerID, e.CatalogID)
}

// Result describes what a merge did. Fields holds the staged column values
// for the store update; Change is nil for unchanged merges.
type Result struct {
	Outcome Outcome
	Fields  map[string]any
	Change  *model.ChangeRecord
}

// Apply diffs the matched entry against the incoming record and stages the
// dirty fields into the Result. The entry itself is not modified: callers
// persist Result.Fields first and then Commit, so a write the store rejects
// leaves the in-memory entry identical to the catalog. Rules:
//
//   - a set external ID is never erased by a blank incoming one;
//   - coordinates are fill-once, never overwritten;
//   - an empty dirty set returns OutcomeUnchanged with no ChangeRecord.
//
// Staging an external ID that a different entry already holds returns a
// *ConflictError.
func Apply(p *model.Pub, v model.Venue, idx *resolve.Index) (Result, error) {
	if v.ExternalID != "" && v.ExternalID != p.ExternalID {
		if owner, ok := idx.ByExternalID(v.ExternalID); ok && owner.CatalogID != p.CatalogID {
			return Result{}, &ConflictError{
				ExternalID: v.ExternalID,
				CatalogID:  p.CatalogID,
				OwnerID:    owner.CatalogID,
			}
		}
	}

	// Transition flags are computed against the pre-merge state.
	change := transitions(p, v)

	fields := make(map[string]any)
	stage := func(name string, val any) {
		fields[name] = val
		change.Fields = append(change.Fields, name)
	}

	if v.Name != p.Name {
		stage("name", v.Name)
	}
	if v.Address != p.Address {
		stage("address", v.Address)
	}
	if v.Description != p.Description {
		stage("description", v.Description)
	}
	if v.Tier != p.Tier {
		stage("tier", v.Tier)
	}
	if v.ListedGrade != p.ListedGrade {
		stage("listed_grade", v.ListedGrade)
	}
	if v.Open != p.Open {
		stage("open", v.Open)
	}
	if v.URL != p.URL {
		stage("url", v.URL)
	}
	if v.ExternalID != p.ExternalID && v.ExternalID != "" {
		stage("external_id", v.ExternalID)
	}

	mergeCoordinates(p, v, stage)

	if len(fields) == 0 {
		return Result{Outcome: OutcomeUnchanged}, nil
	}

	change.Timestamp = time.Now().UTC()

	return Result{Outcome: OutcomeUpdated, Fields: fields, Change: change}, nil
}

// Commit applies the staged field values to the entry. Called only after
// the store accepted the update; until then the entry still mirrors the
// persisted catalog row.
func (r Result) Commit(p *model.Pub) {
	for col, val := range r.Fields {
		switch col {
		case "name":
			p.Name = val.(string)
		case "address":
			p.Address = val.(string)
		case "description":
			p.Description = val.(string)
		case "tier":
			p.Tier = val.(int)
		case "listed_grade":
			p.ListedGrade = val.(string)
		case "open":
			p.Open = val.(bool)
		case "url":
			p.URL = val.(string)
		case "external_id":
			p.ExternalID = val.(string)
		case "latitude":
			lat := val.(float64)
			p.Latitude = &lat
		case "longitude":
			lng := val.(float64)
			p.Longitude = &lng
		}
	}
	if r.Change != nil {
		p.UpdatedAt = r.Change.Timestamp
	}
}

// transitions seeds a ChangeRecord with the tier and open transition flags.
// Tier transitions track only top-tier promotion/demotion; open transitions
// are log-worthy only when either side of the change is top tier.
func transitions(p *model.Pub, v model.Venue) *model.ChangeRecord {
	change := &model.ChangeRecord{
		CatalogID: p.CatalogID,
		Name:      p.Name,
		Address:   p.Address,
	}
	if (p.Tier == model.TierTop) != (v.Tier == model.TierTop) {
		change.Tier = &model.TierTransition{From: p.Tier, To: v.Tier}
	}
	if p.Open != v.Open && (p.Tier == model.TierTop || v.Tier == model.TierTop) {
		change.Open = &model.OpenTransition{From: p.Open, To: v.Open}
	}
	return change
}

// mergeCoordinates applies the fill-once policy: a coordinate is staged
// only when currently unset, protecting manually corrected geocoding.
// Disagreements with already-stored coordinates are logged, never applied.
func mergeCoordinates(p *model.Pub, v model.Venue, stage func(string, any)) {
	if p.Latitude == nil && v.Latitude != nil {
		stage("latitude", *v.Latitude)
	}
	if p.Longitude == nil && v.Longitude != nil {
		stage("longitude", *v.Longitude)
	}

	if p.Latitude != nil && p.Longitude != nil && v.Latitude != nil && v.Longitude != nil {
		if geo.Drifted(*p.Latitude, *p.Longitude, *v.Latitude, *v.Longitude) {
			zap.L().Warn("incoming coordinates drift from stored, keeping stored",
				zap.String("catalog_id", p.CatalogID),
				zap.String("name", p.Name),
				zap.Float64("stored_lat", *p.Latitude),
				zap.Float64("stored_lng", *p.Longitude),
				zap.Float64("incoming_lat", *v.Latitude),
				zap.Float64("incoming_lng", *v.Longitude),
			)
		}
	}
	if v.Latitude != nil && v.Longitude != nil && !geo.Plausible(*v.Latitude, *v.Longitude) {
		zap.L().Warn("incoming coordinates outside coverage area",
			zap.String("name", p.Name),
			zap.Float64("lat", *v.Latitude),
			zap.Float64("lng", *v.Longitude),
		)
	}
}
