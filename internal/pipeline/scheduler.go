package pipeline

import (
	"context"
	"dashd/internal/pipeline/interfaces"
	"dashd/internal/providers"
	"dashd/internal/services"
	"dashd/internal/snapshot"
	"dashd/internal/structures"
	"dashd/internal/upstream"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

// Scheduler owns the daemon's recurring work: the upstream readiness poll,
// the periodic snapshot flush and the snapshot store's value-log GC.
type Scheduler struct {
	config    *structures.Config
	logger    providers.Logger
	api       upstream.ClientInterface
	usage     services.UsageServiceInterface
	snapshots snapshot.StoreInterface
	ready     *ReadyState
	metrics   providers.MetricsProviderInterface
	cron      *gron.Cron
	opsMu     sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Upstream.StatusInterval), func() {
		s.pollStatus()
	})

	s.cron.AddFunc(gron.Every(s.config.Snapshot.FlushInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.flush(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while flushing snapshot: %s", err)
		}
	})

	if s.config.Snapshot.GCInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Snapshot.GCInterval), func() {
			s.snapshots.RunGC()
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore primes the in-memory usage record from the last snapshot before
// any identity is attached.
func (s *Scheduler) Restore() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout())
	defer cancel()

	s.usage.Load(ctx, "")
	s.logger.Infof(providers.TypeApp, "Restored usage state from snapshot")
	return nil
}

// Persist is the shutdown-time flush.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Flushing usage state to snapshot...")
	if err := s.flush(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while flushing snapshot: %s", err)
		return err
	}
	return nil
}

// pollStatus marks the daemon ready once the upstream service reports its
// reference data loaded. A failed poll flips ready off until the next tick,
// the poll itself never stops.
func (s *Scheduler) pollStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout())
	defer cancel()

	ok, err := s.api.Status(ctx)
	if err != nil {
		s.logger.Debugf(providers.TypeApp, "Status poll failed: %s", err)
		ok = false
	}

	if ok != s.ready.Ready() {
		s.logger.Infof(providers.TypeApp, "Upstream ready: %t", ok)
	}
	s.ready.Set(ok)
	s.metrics.SetUpstreamReady(ok)
}

// requestTimeout mirrors the upstream client's default for the optional
// requestTimeout setting, a zero value must not expire contexts instantly.
func (s *Scheduler) requestTimeout() time.Duration {
	if t := s.config.Upstream.RequestTimeout; t > 0 {
		return t
	}
	return 30 * time.Second
}

func (s *Scheduler) flush() error {
	started := time.Now()

	rec := s.usage.Current()
	if rec == nil {
		return nil
	}
	if err := s.snapshots.PutGlobal(rec); err != nil {
		return err
	}
	if identity := s.usage.Identity(); identity != "" {
		if err := s.snapshots.PutForIdentity(identity, rec); err != nil {
			return err
		}
	}

	s.metrics.ObserveSnapshotFlushDuration(time.Since(started))
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	api upstream.ClientInterface,
	usage services.UsageServiceInterface,
	snapshots snapshot.StoreInterface,
	ready *ReadyState,
	metrics providers.MetricsProviderInterface,
) interfaces.SchedulerInterface {
	return &Scheduler{
		config:    config,
		logger:    logger,
		api:       api,
		usage:     usage,
		snapshots: snapshots,
		ready:     ready,
		metrics:   metrics,
	}
}
