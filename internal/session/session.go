// Package session orchestrates one reconciliation batch: normalize each
// incoming record, resolve it against the catalog, merge or create, and
// produce the audit log and before/after statistics.
package session

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/config"
	"github.com/heritagepubs/pubsync/internal/merge"
	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/normalize"
	"github.com/heritagepubs/pubsync/internal/resolve"
	"github.com/heritagepubs/pubsync/internal/stats"
	"github.com/heritagepubs/pubsync/internal/store"
)

// Mode selects how a batch is applied to the catalog.
type Mode string

const (
	// ModeUpdate merges the batch into the existing catalog.
	ModeUpdate Mode = "update"
	// ModeFreshImport discards the catalog and inserts the batch verbatim,
	// bypassing the resolver entirely.
	ModeFreshImport Mode = "fresh_import"
)

// ParseMode validates an operating mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeUpdate, ModeFreshImport:
		return Mode(s), nil
	}
	return "", eris.Errorf("session: unknown mode %q", s)
}

// Report is the outcome of one batch. It is always produced, even when
// individual records failed.
type Report struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Warnings  int `json:"warnings"`

	Changes []model.ChangeRecord `json:"changes"`

	Batch  stats.Snapshot `json:"batch_stats"`
	Before stats.Snapshot `json:"before"`
	After  stats.Snapshot `json:"after"`
}

// Session runs reconciliation batches against one catalog store. A session
// must not run concurrently with another against the same catalog: index
// consistency within a batch depends on exclusive writes.
type Session struct {
	store    store.Store
	resolver *resolve.Resolver
	disamb   Disambiguator
	audit    *Audit
	mode     Mode
}

// New creates a Session. disamb may be nil, which defaults to the
// non-interactive always-skip policy.
func New(st store.Store, resolverCfg config.ResolverConfig, mode Mode, disamb Disambiguator, audit *Audit) *Session {
	if disamb == nil {
		disamb = AutoSkip{}
	}
	return &Session{
		store:    st,
		resolver: resolve.New(resolverCfg),
		disamb:   disamb,
		audit:    audit,
		mode:     mode,
	}
}

// Run processes one batch. A failure to load the catalog snapshot is fatal
// and aborts before any mutation; any later per-record failure is caught,
// counted and logged, and the session continues. Cancellation is honored
// between records; work already applied stays committed.
func (s *Session) Run(ctx context.Context, records []model.RawRecord) (*Report, error) {
	log := zap.L().With(zap.String("component", "session"), zap.String("mode", string(s.mode)))

	snapshot, err := s.store.ListPubs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: load catalog snapshot")
	}

	pubs := make([]*model.Pub, len(snapshot))
	for i := range snapshot {
		pubs[i] = &snapshot[i]
	}

	report := &Report{Before: stats.Compute(pubs)}

	venues := make([]model.Venue, 0, len(records))
	for _, raw := range records {
		v, warns := normalize.Record(raw)
		for _, w := range warns {
			report.Warnings++
			log.Warn("field coercion failed", zap.String("record", w.Record),
				zap.String("field", w.Field), zap.String("reason", w.Reason))
			s.audit.Line("Warning: %s", w)
		}
		venues = append(venues, v)
	}
	report.Batch = stats.ComputeVenues(venues)

	s.audit.Section("Batch stats:")
	for _, line := range stats.SnapshotLines(report.Batch) {
		s.audit.Line("%s", line)
	}
	s.audit.Section("DB stats before:")
	for _, line := range stats.SnapshotLines(report.Before) {
		s.audit.Line("%s", line)
	}
	s.audit.Section("")

	var idx *resolve.Index
	if s.mode == ModeFreshImport {
		n, err := s.store.DeleteAllPubs(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "session: wipe catalog")
		}
		log.Info("fresh import: catalog wiped", zap.Int64("deleted", n))
		idx = resolve.NewIndex(nil)
	} else {
		idx = resolve.NewIndex(pubs)
	}

	var runErr error
	for i, v := range venues {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrapf(err, "session: aborted at record %d/%d", i+1, len(venues))
			break
		}
		s.processRecord(ctx, v, idx, report, log)
	}

	report.After = stats.Compute(idx.All())

	s.audit.Section("DB stats after:")
	for _, line := range stats.Lines(report.Before, report.After) {
		s.audit.Line("%s", line)
	}

	log.Info("batch complete",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("errored", report.Errored),
	)

	return report, runErr
}

// processRecord handles one record end to end. All error paths are
// converted into counters and log entries; nothing propagates.
func (s *Session) processRecord(ctx context.Context, v model.Venue, idx *resolve.Index, report *Report, log *zap.Logger) {
	if s.mode == ModeFreshImport {
		if err := s.create(ctx, v, idx, report); err != nil {
			report.Errored++
			log.Error("create failed", zap.String("name", v.Name), zap.Error(err))
		}
		return
	}

	m := s.resolver.Resolve(v, idx)
	switch {
	case m.Matched():
		s.applyMatch(ctx, v, m, idx, report, log)

	case m.Type == model.MatchAmbiguous:
		choice, err := s.disamb.Choose(v, m.Candidates)
		if err != nil {
			report.Errored++
			log.Error("disambiguation failed", zap.String("name", v.Name), zap.Error(err))
			return
		}
		switch choice.Action {
		case ActionPick:
			picked := m.Candidates[choice.Candidate]
			s.applyMatch(ctx, v, model.Match{
				Type:      model.MatchFuzzy,
				CatalogID: picked.CatalogID,
				Score:     picked.Score,
			}, idx, report, log)
		case ActionCreate:
			if err := s.create(ctx, v, idx, report); err != nil {
				report.Errored++
				log.Error("create failed", zap.String("name", v.Name), zap.Error(err))
			}
		default:
			report.Skipped++
			s.audit.Line("Skipped (ambiguous): %s, Address: %s", v.Name, v.Address)
		}

	default: // no match
		if err := s.create(ctx, v, idx, report); err != nil {
			report.Errored++
			log.Error("create failed", zap.String("name", v.Name), zap.Error(err))
		}
	}
}

// applyMatch merges an incoming record into its matched catalog entry.
func (s *Session) applyMatch(ctx context.Context, v model.Venue, m model.Match, idx *resolve.Index, report *Report, log *zap.Logger) {
	p, ok := idx.ByCatalogID(m.CatalogID)
	if !ok {
		report.Errored++
		log.Error("matched entry missing from index", zap.String("catalog_id", m.CatalogID))
		return
	}

	oldExternalID, oldAddress := p.ExternalID, p.Address

	result, err := merge.Apply(p, v, idx)
	if err != nil {
		var conflict *merge.ConflictError
		if errors.As(err, &conflict) {
			report.Skipped++
			log.Error("external ID conflict, record skipped",
				zap.String("external_id", conflict.ExternalID),
				zap.String("catalog_id", conflict.CatalogID),
				zap.String("owner_id", conflict.OwnerID),
			)
			s.audit.Line("Conflict: %s, Address: %s (external ID %s already in use)",
				v.Name, v.Address, conflict.ExternalID)
			return
		}
		report.Errored++
		log.Error("merge failed", zap.String("catalog_id", m.CatalogID), zap.Error(err))
		return
	}

	if result.Outcome == merge.OutcomeUnchanged {
		report.Unchanged++
		log.Debug("no change", zap.String("catalog_id", p.CatalogID), zap.String("name", p.Name))
		return
	}

	if err := s.store.UpdatePub(ctx, p.CatalogID, result.Fields); err != nil {
		report.Errored++
		log.Error("update failed", zap.String("catalog_id", p.CatalogID), zap.Error(err))
		return
	}
	// The store accepted the write; only now does the in-memory entry (and
	// the index keyed on it) pick up the staged values.
	result.Commit(p)
	idx.Reindex(p, oldExternalID, oldAddress)

	if err := s.store.AppendChange(ctx, result.Change); err != nil {
		// The update itself committed; the missing audit row is log-only.
		log.Error("append change failed", zap.String("catalog_id", p.CatalogID), zap.Error(err))
	}
	report.Updated++
	report.Changes = append(report.Changes, *result.Change)

	for _, line := range result.Change.Lines() {
		s.audit.Line("%s", line)
	}
	log.Info("updated",
		zap.String("catalog_id", p.CatalogID),
		zap.String("name", p.Name),
		zap.String("match", string(m.Type)),
		zap.Strings("fields", result.Change.Fields),
	)
}

// create inserts a brand-new catalog entry and makes it visible to all
// subsequent lookups in this batch.
func (s *Session) create(ctx context.Context, v model.Venue, idx *resolve.Index, report *Report) error {
	p := &model.Pub{
		ExternalID:  v.ExternalID,
		ContentHash: normalize.ContentHash(v.Address),
		Name:        v.Name,
		Address:     v.Address,
		Description: v.Description,
		Tier:        v.Tier,
		ListedGrade: v.ListedGrade,
		Open:        v.Open,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		URL:         v.URL,
	}
	if err := s.store.CreatePub(ctx, p); err != nil {
		return err
	}
	idx.Add(p)
	report.Created++
	s.audit.Line("Created: %s, Address: %s", p.Name, p.Address)
	return nil
}
