package dbbadger

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	walletDbDir    = "wallet"
	txLogSeqKey    = "txlog_seq"
	seqBandwidth   = 100
	maxTxRetries   = 5
	txRetryBackoff = 50 * time.Millisecond
	gcInterval     = 30 * time.Minute
)

type txKey struct{}

type repoManager struct {
	store *badgerhold.Store
	seq   *badger.Sequence
	quit  chan struct{}

	outputRepository  domain.OutputRepository
	txLogRepository   domain.TxLogRepository
	accountRepository domain.AccountRepository
	slateRepository   domain.SlateRepository
}

// NewRepoManager opens (or creates if not exists) the wallet badger store
// under the given base dir. An empty dir makes the store live in memory.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, walletDbDir)
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}

	seq, err := store.Badger().GetSequence([]byte(txLogSeqKey), seqBandwidth)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening tx log sequence: %w", err)
	}

	quit := make(chan struct{})
	if len(dbDir) > 0 {
		go runValueLogGC(store, quit)
	}

	return &repoManager{
		store:             store,
		seq:               seq,
		quit:              quit,
		outputRepository:  newOutputRepositoryImpl(store),
		txLogRepository:   newTxLogRepositoryImpl(store, seq),
		accountRepository: newAccountRepositoryImpl(store),
		slateRepository:   newSlateRepositoryImpl(store),
	}, nil
}

func (m *repoManager) OutputRepository() domain.OutputRepository {
	return m.outputRepository
}

func (m *repoManager) TxLogRepository() domain.TxLogRepository {
	return m.txLogRepository
}

func (m *repoManager) AccountRepository() domain.AccountRepository {
	return m.accountRepository
}

func (m *repoManager) SlateRepository() domain.SlateRepository {
	return m.slateRepository
}

// RunTransaction runs the handler in a badger transaction carried by the
// context. Conflicting write transactions are retried a few times. Nested
// calls join the outer transaction.
func (m *repoManager) RunTransaction(
	ctx context.Context, readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if txFromContext(ctx) != nil {
		return handler(ctx)
	}

	for i := 0; ; i++ {
		res, err := m.runTransaction(ctx, readOnly, handler)
		if err != badger.ErrConflict || i >= maxTxRetries-1 {
			return res, err
		}
		log.Debugf("db transaction conflict, retrying (%d/%d)", i+1, maxTxRetries)
		time.Sleep(txRetryBackoff)
	}
}

func (m *repoManager) Close() {
	close(m.quit)
	if err := m.seq.Release(); err != nil {
		log.WithError(err).Warn("releasing tx log sequence")
	}
	m.store.Close()
}

func (m *repoManager) runTransaction(
	ctx context.Context, readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	tx := m.store.Badger().NewTransaction(!readOnly)
	defer tx.Discard()

	res, err := handler(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		return nil, err
	}
	if !readOnly {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func txFromContext(ctx context.Context) *badger.Txn {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(txKey{}).(*badger.Txn)
	return tx
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: seqBandwidth,
		Options:          opts,
	})
}

func runValueLogGC(store *badgerhold.Store, quit <-chan struct{}) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if err := store.Badger().RunValueLogGC(0.5); err != nil &&
				err != badger.ErrNoRewrite {
				log.Error(err)
			}
		}
	}
}

// The helpers below make every repository method work both inside and
// outside of RunTransaction.

func insert(ctx context.Context, s *badgerhold.Store, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxInsert(tx, key, data)
	}
	return s.Insert(key, data)
}

func upsert(ctx context.Context, s *badgerhold.Store, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxUpsert(tx, key, data)
	}
	return s.Upsert(key, data)
}

func update(ctx context.Context, s *badgerhold.Store, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxUpdate(tx, key, data)
	}
	return s.Update(key, data)
}

func get(ctx context.Context, s *badgerhold.Store, key, result interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxGet(tx, key, result)
	}
	return s.Get(key, result)
}

func find(
	ctx context.Context, s *badgerhold.Store, result interface{},
	query *badgerhold.Query,
) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxFind(tx, result, query)
	}
	return s.Find(result, query)
}

func remove(ctx context.Context, s *badgerhold.Store, key, dataType interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxDelete(tx, key, dataType)
	}
	return s.Delete(key, dataType)
}
