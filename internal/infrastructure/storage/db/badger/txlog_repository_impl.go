package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type txLogRepositoryImpl struct {
	store *badgerhold.Store
	seq   *badger.Sequence
}

func newTxLogRepositoryImpl(
	store *badgerhold.Store, seq *badger.Sequence,
) domain.TxLogRepository {
	return &txLogRepositoryImpl{store, seq}
}

// AddEntry assigns the next id of the ledger sequence to the entry and
// stores it. Ids start from 1 and never repeat, even when the surrounding
// transaction is rolled back.
func (r *txLogRepositoryImpl) AddEntry(
	ctx context.Context, entry *domain.TxLogEntry,
) (uint64, error) {
	if entry == nil {
		return 0, ErrNullEntry
	}

	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	entry.ID = next + 1

	if err := insert(ctx, r.store, entry.ID, *entry); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (r *txLogRepositoryImpl) GetEntry(
	ctx context.Context, id uint64,
) (*domain.TxLogEntry, error) {
	var entry domain.TxLogEntry
	if err := get(ctx, r.store, id, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTxNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *txLogRepositoryImpl) GetEntryBySlateID(
	ctx context.Context, slateID string,
) (*domain.TxLogEntry, error) {
	query := badgerhold.Where("SlateID").Eq(slateID)

	var entries []domain.TxLogEntry
	if err := find(ctx, r.store, &entries, query); err != nil {
		return nil, err
	}
	if len(entries) <= 0 {
		return nil, domain.ErrTxNotFound
	}
	return &entries[0], nil
}

func (r *txLogRepositoryImpl) GetAllEntries(
	ctx context.Context,
) ([]domain.TxLogEntry, error) {
	var entries []domain.TxLogEntry
	if err := find(ctx, r.store, &entries, nil); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func (r *txLogRepositoryImpl) UpdateEntry(
	ctx context.Context, id uint64,
	updateFn func(e *domain.TxLogEntry) (*domain.TxLogEntry, error),
) error {
	entry, err := r.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	updated, err := updateFn(entry)
	if err != nil {
		return err
	}
	return update(ctx, r.store, id, *updated)
}
