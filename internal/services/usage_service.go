package services

import (
	"context"
	"dashd/internal/docstore"
	"dashd/internal/models"
	"dashd/internal/providers"
	"dashd/internal/snapshot"
	"dashd/internal/upstream"
	"errors"
	"sync"
	"time"
)

const remoteWriteTimeout = 10 * time.Second

// UsageServiceInterface reconciles the usage record across three sources:
// the device-local snapshot store, the remote per-identity statistics
// document and the prediction service's own counters. Conflicts on the two
// monotone counters resolve by field-wise maximum; everything else is
// last-write-wins.
type UsageServiceInterface interface {
	Load(ctx context.Context, identity string) *models.UsageRecord
	Current() *models.UsageRecord
	Identity() string
	Save(identity string, rec *models.UsageRecord) *models.UsageRecord
	RecordSearch(ctx context.Context, column, entry string, resultCount int)
	RecordUpload(ctx context.Context, ts time.Time)
	Detach()
}

type UsageService struct {
	mu       sync.RWMutex
	current  *models.UsageRecord
	identity string

	watchCancel context.CancelFunc

	snapshots snapshot.StoreInterface
	docs      docstore.StoreInterface
	api       upstream.ClientInterface
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

func NewUsageService(
	snapshots snapshot.StoreInterface,
	docs docstore.StoreInterface,
	api upstream.ClientInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) UsageServiceInterface {
	return &UsageService{
		current:   models.NewUsageRecord(),
		snapshots: snapshots,
		docs:      docs,
		api:       api,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load resolves the authoritative record for the identity and wires up the
// standing change subscription. Anonymous loads only consult the global
// snapshot. Remote failures never fail the load; the best locally available
// record wins.
func (s *UsageService) Load(ctx context.Context, identity string) *models.UsageRecord {
	s.Detach()

	if identity == "" {
		rec, ok, err := s.snapshots.Global()
		if err != nil {
			s.logger.Warnf(providers.TypeSync, "Global snapshot read failed: %s", err)
		}
		if !ok || rec == nil {
			rec = models.NewUsageRecord()
		}
		s.setCurrent("", rec)
		return rec.Clone()
	}

	rec := s.resolveIdentity(ctx, identity)
	s.setCurrent(identity, rec)
	s.startWatch(identity)
	s.mergeAPICounts(ctx, identity)

	return s.Current()
}

// resolveIdentity implements the source priority on login: remote document
// when present, else the identity-scoped snapshot (pushed up to initialize
// the remote), else a zeroed default (also pushed up).
func (s *UsageService) resolveIdentity(ctx context.Context, identity string) *models.UsageRecord {
	remote, err := s.docs.GetStats(ctx, identity)
	if err == nil {
		s.persistSnapshots(identity, remote)
		return remote
	}

	if !errors.Is(err, docstore.ErrNotFound) {
		// Transport trouble: fall back to whatever the device knows and skip
		// remote initialization; the next load retries.
		s.logger.Warnf(providers.TypeSync, "Stats document read for %s failed: %s", identity, err)
		s.metrics.IncSyncFailures("docstore")
		if local, ok, _ := s.snapshots.ForIdentity(identity); ok {
			return local
		}
		if global, ok, _ := s.snapshots.Global(); ok {
			return global
		}
		return models.NewUsageRecord()
	}

	local, ok, serr := s.snapshots.ForIdentity(identity)
	if serr != nil {
		s.logger.Warnf(providers.TypeSync, "Snapshot read for %s failed: %s", identity, serr)
	}
	if !ok || local == nil {
		local = models.NewUsageRecord()
	}
	if cerr := s.docs.CreateStats(ctx, identity, local); cerr != nil {
		s.logger.Warnf(providers.TypeSync, "Stats document init for %s failed: %s", identity, cerr)
		s.metrics.IncSyncFailures("docstore")
	}
	return local
}

// startWatch subscribes to remote changes. Every delivered record overwrites
// the in-memory state and both snapshot keys, including records that race
// with a local save: last write wins at this layer.
func (s *UsageService) startWatch(identity string) {
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.docs.Watch(ctx, identity)
	if err != nil {
		s.logger.Warnf(providers.TypeSync, "Watch for %s failed: %s", identity, err)
		s.metrics.IncSyncFailures("docstore")
		cancel()
		return
	}

	s.mu.Lock()
	s.watchCancel = cancel
	s.mu.Unlock()

	go func() {
		for rec := range ch {
			s.mu.Lock()
			if s.identity != identity {
				s.mu.Unlock()
				return
			}
			s.current = rec.Clone()
			s.mu.Unlock()

			s.persistSnapshots(identity, rec)
			s.logger.Debugf(providers.TypeSync, "Applied remote stats update for %s", identity)
		}
	}()
}

// mergeAPICounts folds the prediction service's counters into the record
// when they are ahead. Failure here is routine (the endpoint may be cold)
// and never blocks the load.
func (s *UsageService) mergeAPICounts(ctx context.Context, identity string) {
	counts, err := s.api.UserStats(ctx, identity)
	if err != nil {
		s.logger.Warnf(providers.TypeSync, "Counter endpoint read for %s failed: %s", identity, err)
		s.metrics.IncSyncFailures("upstream")
		return
	}

	cur := s.Current()
	if counts.SearchCount <= cur.SearchCount && counts.UploadCount <= cur.UploadCount {
		return
	}
	cur.MergeCounts(counts.SearchCount, counts.UploadCount)
	s.Save(identity, cur)
}

// Save persists the record everywhere it belongs. It never fails the caller:
// snapshot and remote errors are logged and the given record is returned so
// in-memory state always advances.
func (s *UsageService) Save(identity string, rec *models.UsageRecord) *models.UsageRecord {
	s.setCurrent(identity, rec)

	if err := s.snapshots.PutGlobal(rec); err != nil {
		s.logger.Warnf(providers.TypeSync, "Global snapshot write failed: %s", err)
		s.metrics.IncSyncFailures("snapshot")
	}

	if identity == "" {
		return rec
	}

	if err := s.snapshots.PutForIdentity(identity, rec); err != nil {
		s.logger.Warnf(providers.TypeSync, "Snapshot write for %s failed: %s", identity, err)
		s.metrics.IncSyncFailures("snapshot")
	}

	remote := rec.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer cancel()

		err := s.docs.UpdateStats(ctx, identity, remote)
		if errors.Is(err, docstore.ErrNotFound) {
			err = s.docs.CreateStats(ctx, identity, remote)
		}
		if err != nil {
			s.logger.Warnf(providers.TypeSync, "Stats document write for %s failed: %s", identity, err)
			s.metrics.IncSyncFailures("docstore")
		}
	}()

	return rec
}

// RecordSearch accounts for one search. With an identity attached the
// prediction service must acknowledge the search first; if it refuses, the
// counters stay put (the search results themselves are unaffected).
func (s *UsageService) RecordSearch(ctx context.Context, column, entry string, resultCount int) {
	identity := s.Identity()

	if identity != "" {
		if err := s.api.RecordSearch(ctx, identity); err != nil {
			s.logger.Warnf(providers.TypeSync, "Search accounting for %s failed: %s", identity, err)
			s.metrics.IncSyncFailures("upstream")
			return
		}
	}

	rec := s.Current()
	rec.AddSearch(column, entry, resultCount, time.Now())
	s.Save(identity, rec)
	s.metrics.IncSearches()
}

// RecordUpload accounts for one upload. The remote uploads-counter bump is
// fire-and-forget; the caller's download has already happened and nothing
// here may undo it.
func (s *UsageService) RecordUpload(ctx context.Context, ts time.Time) {
	identity := s.Identity()

	rec := s.Current()
	rec.AddUpload(ts)
	s.Save(identity, rec)
	s.metrics.IncUploads()

	if identity == "" {
		return
	}
	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer cancel()
		if err := s.docs.IncrementUploads(bctx, identity, ts); err != nil {
			s.logger.Warnf(providers.TypeSync, "Upload accounting for %s failed: %s", identity, err)
			s.metrics.IncSyncFailures("docstore")
		}
	}()
}

// Detach tears down the standing subscription. Safe to call when none is
// active; must run on identity change and on shutdown.
func (s *UsageService) Detach() {
	s.mu.Lock()
	cancel := s.watchCancel
	s.watchCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *UsageService) Current() *models.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *UsageService) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *UsageService) setCurrent(identity string, rec *models.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.current = rec.Clone()
}

func (s *UsageService) persistSnapshots(identity string, rec *models.UsageRecord) {
	if err := s.snapshots.PutGlobal(rec); err != nil {
		s.logger.Warnf(providers.TypeSync, "Global snapshot write failed: %s", err)
		s.metrics.IncSyncFailures("snapshot")
	}
	if identity == "" {
		return
	}
	if err := s.snapshots.PutForIdentity(identity, rec); err != nil {
		s.logger.Warnf(providers.TypeSync, "Snapshot write for %s failed: %s", identity, err)
		s.metrics.IncSyncFailures("snapshot")
	}
}
