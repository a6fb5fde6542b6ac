package dbbadger

import (
	"context"
	"fmt"
	"sort"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type outputRepositoryImpl struct {
	store *badgerhold.Store
}

func newOutputRepositoryImpl(store *badgerhold.Store) domain.OutputRepository {
	return &outputRepositoryImpl{store}
}

func (r *outputRepositoryImpl) AddOutputs(
	ctx context.Context, outputs []domain.Output,
) error {
	for _, o := range outputs {
		if err := insert(ctx, r.store, o.Commit, o); err != nil {
			if err == badgerhold.ErrKeyExists {
				return fmt.Errorf("%w: %s", ErrOutputAlreadyExists, o.Commit)
			}
			return err
		}
	}
	return nil
}

func (r *outputRepositoryImpl) GetOutput(
	ctx context.Context, commit string,
) (*domain.Output, error) {
	var output domain.Output
	if err := get(ctx, r.store, commit, &output); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrOutputNotFound
		}
		return nil, err
	}
	return &output, nil
}

func (r *outputRepositoryImpl) GetAllOutputs(
	ctx context.Context,
) ([]domain.Output, error) {
	return r.findOutputs(ctx, nil)
}

func (r *outputRepositoryImpl) GetUnspentOutputsForAccount(
	ctx context.Context, account string,
) ([]domain.Output, error) {
	query := badgerhold.Where("AccountLabel").Eq(account)
	outputs, err := r.findOutputs(ctx, query)
	if err != nil {
		return nil, err
	}

	unspents := make([]domain.Output, 0, len(outputs))
	for _, o := range outputs {
		if o.Status == domain.OutputUnspent && !o.IsLocked() {
			unspents = append(unspents, o)
		}
	}
	return unspents, nil
}

func (r *outputRepositoryImpl) GetOutputsLockedBy(
	ctx context.Context, slateID string,
) ([]domain.Output, error) {
	query := badgerhold.Where("LockedBy").Eq(slateID)
	return r.findOutputs(ctx, query)
}

func (r *outputRepositoryImpl) GetOutputsForTxLog(
	ctx context.Context, txLogID uint64,
) ([]domain.Output, error) {
	query := badgerhold.Where("TxLogID").Eq(txLogID)
	return r.findOutputs(ctx, query)
}

func (r *outputRepositoryImpl) UpdateOutput(
	ctx context.Context, commit string,
	updateFn func(o *domain.Output) (*domain.Output, error),
) error {
	output, err := r.GetOutput(ctx, commit)
	if err != nil {
		return err
	}

	updated, err := updateFn(output)
	if err != nil {
		return err
	}
	return update(ctx, r.store, commit, *updated)
}

func (r *outputRepositoryImpl) LockOutputs(
	ctx context.Context, commits []string, slateID string,
) error {
	for _, commit := range commits {
		if err := r.UpdateOutput(
			ctx, commit, func(o *domain.Output) (*domain.Output, error) {
				if err := o.Lock(slateID); err != nil {
					return nil, err
				}
				return o, nil
			},
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *outputRepositoryImpl) UnlockOutputs(
	ctx context.Context, slateID string,
) (int, error) {
	outputs, err := r.GetOutputsLockedBy(ctx, slateID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, o := range outputs {
		if o.Status != domain.OutputLocked {
			continue
		}
		o := o
		if err := o.Unlock(); err != nil {
			return count, err
		}
		if err := update(ctx, r.store, o.Commit, o); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *outputRepositoryImpl) DeleteOutput(
	ctx context.Context, commit string,
) error {
	if err := remove(ctx, r.store, commit, domain.Output{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.ErrOutputNotFound
		}
		return err
	}
	return nil
}

func (r *outputRepositoryImpl) findOutputs(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Output, error) {
	var outputs []domain.Output
	if err := find(ctx, r.store, &outputs, query); err != nil {
		return nil, err
	}
	sort.SliceStable(outputs, func(i, j int) bool {
		return outputs[i].KeyPath < outputs[j].KeyPath
	})
	return outputs, nil
}
