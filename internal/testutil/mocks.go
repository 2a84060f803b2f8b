package testutil

import (
	"context"
	"dashd/internal/docstore"
	"dashd/internal/models"
	"dashd/internal/providers"
	"dashd/internal/upstream"
	"io"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements snapshot.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu            sync.Mutex
	Requests      int
	CacheHits     int
	CacheMisses   int
	Searches      int
	Uploads       int
	Merges        int
	SyncFailures  map[string]int
	Flushes       int
	UpstreamReady bool
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncSearches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches++
}
func (m *MockMetrics) IncUploads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads++
}
func (m *MockMetrics) IncMerges() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merges++
}
func (m *MockMetrics) IncSyncFailures(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SyncFailures == nil {
		m.SyncFailures = make(map[string]int)
	}
	m.SyncFailures[target]++
}
func (m *MockMetrics) ObserveSnapshotFlushDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
}
func (m *MockMetrics) SetUpstreamReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpstreamReady = ready
}

// MockSnapshotStore implements snapshot.StoreInterface in memory.
type MockSnapshotStore struct {
	mu      sync.Mutex
	Records map[string]*models.UsageRecord
	PutErr  error
	GetErr  error
	GCRuns  int
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{Records: make(map[string]*models.UsageRecord)}
}

func (m *MockSnapshotStore) get(key string) (*models.UsageRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	rec, ok := m.Records[key]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (m *MockSnapshotStore) put(key string, rec *models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Records[key] = rec.Clone()
	return nil
}

func (m *MockSnapshotStore) Global() (*models.UsageRecord, bool, error) {
	return m.get("usage")
}

func (m *MockSnapshotStore) ForIdentity(identity string) (*models.UsageRecord, bool, error) {
	return m.get("usage:" + identity)
}

func (m *MockSnapshotStore) PutGlobal(rec *models.UsageRecord) error {
	return m.put("usage", rec)
}

func (m *MockSnapshotStore) PutForIdentity(identity string, rec *models.UsageRecord) error {
	return m.put("usage:"+identity, rec)
}

func (m *MockSnapshotStore) RunGC() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GCRuns++
}

func (m *MockSnapshotStore) Close() error { return nil }

// MockDocStore implements docstore.StoreInterface with injectable behavior.
type MockDocStore struct {
	mu sync.Mutex

	GetStatsFn         func(ctx context.Context, identity string) (*models.UsageRecord, error)
	CreateStatsFn      func(ctx context.Context, identity string, rec *models.UsageRecord) error
	UpdateStatsFn      func(ctx context.Context, identity string, rec *models.UsageRecord) error
	WatchFn            func(ctx context.Context, identity string) (<-chan *models.UsageRecord, error)
	IncrementUploadsFn func(ctx context.Context, identity string, ts time.Time) error
	AppendActivityFn   func(ctx context.Context, identity string, entry docstore.ActivityEntry) error

	Created    []string
	Updated    []string
	Uploads    []string
	Activities []docstore.ActivityEntry
}

func (m *MockDocStore) GetStats(ctx context.Context, identity string) (*models.UsageRecord, error) {
	if m.GetStatsFn != nil {
		return m.GetStatsFn(ctx, identity)
	}
	return nil, docstore.ErrNotFound
}

func (m *MockDocStore) CreateStats(ctx context.Context, identity string, rec *models.UsageRecord) error {
	m.mu.Lock()
	m.Created = append(m.Created, identity)
	m.mu.Unlock()
	if m.CreateStatsFn != nil {
		return m.CreateStatsFn(ctx, identity, rec)
	}
	return nil
}

func (m *MockDocStore) UpdateStats(ctx context.Context, identity string, rec *models.UsageRecord) error {
	m.mu.Lock()
	m.Updated = append(m.Updated, identity)
	m.mu.Unlock()
	if m.UpdateStatsFn != nil {
		return m.UpdateStatsFn(ctx, identity, rec)
	}
	return nil
}

func (m *MockDocStore) Watch(ctx context.Context, identity string) (<-chan *models.UsageRecord, error) {
	if m.WatchFn != nil {
		return m.WatchFn(ctx, identity)
	}
	ch := make(chan *models.UsageRecord)
	close(ch)
	return ch, nil
}

func (m *MockDocStore) IncrementUploads(ctx context.Context, identity string, ts time.Time) error {
	m.mu.Lock()
	m.Uploads = append(m.Uploads, identity)
	m.mu.Unlock()
	if m.IncrementUploadsFn != nil {
		return m.IncrementUploadsFn(ctx, identity, ts)
	}
	return nil
}

func (m *MockDocStore) AppendActivity(ctx context.Context, identity string, entry docstore.ActivityEntry) error {
	m.mu.Lock()
	m.Activities = append(m.Activities, entry)
	m.mu.Unlock()
	if m.AppendActivityFn != nil {
		return m.AppendActivityFn(ctx, identity, entry)
	}
	return nil
}

func (m *MockDocStore) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

func (m *MockDocStore) ActivityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Activities)
}

// MockUpstream implements upstream.ClientInterface with injectable behavior.
type MockUpstream struct {
	mu sync.Mutex

	StatusFn          func(ctx context.Context) (bool, error)
	SearchColumnsFn   func(ctx context.Context, query string) ([]string, error)
	SearchValuesFn    func(ctx context.Context, column, query string, limit int) ([]string, error)
	RecordSearchFn    func(ctx context.Context, identity string) error
	UserStatsFn       func(ctx context.Context, identity string) (*upstream.UserCounts, error)
	UploadCSVFn       func(ctx context.Context, filename string, file io.Reader, identity string) (*upstream.UploadResult, error)
	PredictionFilesFn func(ctx context.Context, identity string) ([]upstream.PredictionFile, error)

	RecordedSearches []string
	UploadCalls      int
}

func (m *MockUpstream) Status(ctx context.Context) (bool, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	return true, nil
}

func (m *MockUpstream) SearchColumns(ctx context.Context, query string) ([]string, error) {
	if m.SearchColumnsFn != nil {
		return m.SearchColumnsFn(ctx, query)
	}
	return nil, nil
}

func (m *MockUpstream) SearchValues(ctx context.Context, column, query string, limit int) ([]string, error) {
	if m.SearchValuesFn != nil {
		return m.SearchValuesFn(ctx, column, query, limit)
	}
	return nil, nil
}

func (m *MockUpstream) RecordSearch(ctx context.Context, identity string) error {
	m.mu.Lock()
	m.RecordedSearches = append(m.RecordedSearches, identity)
	m.mu.Unlock()
	if m.RecordSearchFn != nil {
		return m.RecordSearchFn(ctx, identity)
	}
	return nil
}

func (m *MockUpstream) UserStats(ctx context.Context, identity string) (*upstream.UserCounts, error) {
	if m.UserStatsFn != nil {
		return m.UserStatsFn(ctx, identity)
	}
	return &upstream.UserCounts{}, nil
}

func (m *MockUpstream) UploadCSV(ctx context.Context, filename string, file io.Reader, identity string) (*upstream.UploadResult, error) {
	m.mu.Lock()
	m.UploadCalls++
	m.mu.Unlock()
	if m.UploadCSVFn != nil {
		return m.UploadCSVFn(ctx, filename, file, identity)
	}
	return &upstream.UploadResult{}, nil
}

func (m *MockUpstream) PredictionFiles(ctx context.Context, identity string) ([]upstream.PredictionFile, error) {
	if m.PredictionFilesFn != nil {
		return m.PredictionFilesFn(ctx, identity)
	}
	return nil, nil
}

func (m *MockUpstream) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedSearches)
}

// MockUsageService implements services.UsageServiceInterface and records calls.
type MockUsageService struct {
	mu sync.Mutex

	CurrentRec  *models.UsageRecord
	IdentityVal string

	LoadCalls   []string
	SaveCalls   int
	SearchCalls []SearchCall
	UploadCalls []time.Time
	DetachCalls int
}

type SearchCall struct {
	Column      string
	Entry       string
	ResultCount int
}

func (m *MockUsageService) Load(_ context.Context, identity string) *models.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls = append(m.LoadCalls, identity)
	m.IdentityVal = identity
	if m.CurrentRec == nil {
		m.CurrentRec = models.NewUsageRecord()
	}
	return m.CurrentRec
}

func (m *MockUsageService) Current() *models.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CurrentRec == nil {
		m.CurrentRec = models.NewUsageRecord()
	}
	return m.CurrentRec
}

func (m *MockUsageService) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IdentityVal
}

func (m *MockUsageService) Save(_ string, rec *models.UsageRecord) *models.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	m.CurrentRec = rec
	return rec
}

func (m *MockUsageService) RecordSearch(_ context.Context, column, entry string, resultCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls = append(m.SearchCalls, SearchCall{Column: column, Entry: entry, ResultCount: resultCount})
}

func (m *MockUsageService) RecordUpload(_ context.Context, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadCalls = append(m.UploadCalls, ts)
}

func (m *MockUsageService) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DetachCalls++
	m.IdentityVal = ""
}

func (m *MockUsageService) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.UploadCalls)
}

func (m *MockUsageService) SearchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SearchCalls)
}
