package snapshot

import (
	"dashd/internal/models"
	"dashd/internal/providers"
	"dashd/internal/structures"
	"errors"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

const globalKey = "usage"

func identityKey(identity string) string {
	return "usage:" + identity
}

// StoreInterface is the device-local snapshot of the usage record. It holds
// the last-known record under a global key and one key per identity. Writes
// are best-effort from the caller's point of view: the reconciler logs
// failures and moves on.
type StoreInterface interface {
	Global() (*models.UsageRecord, bool, error)
	ForIdentity(identity string) (*models.UsageRecord, bool, error)
	PutGlobal(rec *models.UsageRecord) error
	PutForIdentity(identity string, rec *models.UsageRecord) error
	RunGC()
	Close() error
}

type Store struct {
	db         *badger.DB
	compressor CompressorInterface
	logger     providers.Logger
}

func NewStore(conf *structures.Config, compressor CompressorInterface, logger providers.Logger) (StoreInterface, error) {
	opts := badger.DefaultOptions(conf.Snapshot.Dir).
		WithSyncWrites(conf.Snapshot.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	logger.Infof(providers.TypeApp, "Snapshot store opened at %s", conf.Snapshot.Dir)

	return &Store{
		db:         db,
		compressor: compressor,
		logger:     logger,
	}, nil
}

func (s *Store) get(key string) (*models.UsageRecord, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, err := s.compressor.Decompress(raw)
	if err != nil {
		return nil, false, err
	}

	var rec models.UsageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, err
	}
	rec.Normalize()
	return &rec, true, nil
}

func (s *Store) put(key string, rec *models.UsageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	compressed, err := s.compressor.Compress(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), compressed)
	})
}

func (s *Store) Global() (*models.UsageRecord, bool, error) {
	return s.get(globalKey)
}

func (s *Store) ForIdentity(identity string) (*models.UsageRecord, bool, error) {
	return s.get(identityKey(identity))
}

func (s *Store) PutGlobal(rec *models.UsageRecord) error {
	return s.put(globalKey, rec)
}

func (s *Store) PutForIdentity(identity string, rec *models.UsageRecord) error {
	return s.put(identityKey(identity), rec)
}

// RunGC reclaims value-log space. Badger returns ErrNoRewrite when there is
// nothing to collect; that is not a failure.
func (s *Store) RunGC() {
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warnf(providers.TypeApp, "Snapshot GC error: %s", err)
			}
			return
		}
	}
}

func (s *Store) Close() error {
	s.compressor.Close()
	return s.db.Close()
}
