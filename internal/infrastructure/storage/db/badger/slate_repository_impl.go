package dbbadger

import (
	"context"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type slateRepositoryImpl struct {
	store *badgerhold.Store
}

func newSlateRepositoryImpl(store *badgerhold.Store) domain.SlateRepository {
	return &slateRepositoryImpl{store}
}

// SaveSlate stores the given slate, replacing the previous copy.
func (r *slateRepositoryImpl) SaveSlate(
	ctx context.Context, slate *domain.Slate,
) error {
	if slate == nil {
		return ErrNullSlate
	}
	return upsert(ctx, r.store, slate.ID.String(), *slate)
}

func (r *slateRepositoryImpl) GetSlate(
	ctx context.Context, slateID string,
) (*domain.Slate, error) {
	var slate domain.Slate
	if err := get(ctx, r.store, slateID, &slate); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSlateNotFound
		}
		return nil, err
	}
	return &slate, nil
}

func (r *slateRepositoryImpl) SaveContext(
	ctx context.Context, sctx *domain.SlateContext,
) error {
	if sctx == nil {
		return ErrNullSlate
	}
	return upsert(ctx, r.store, sctx.SlateID, *sctx)
}

func (r *slateRepositoryImpl) GetContext(
	ctx context.Context, slateID string,
) (*domain.SlateContext, error) {
	var sctx domain.SlateContext
	if err := get(ctx, r.store, slateID, &sctx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSlateNotFound
		}
		return nil, err
	}
	return &sctx, nil
}

func (r *slateRepositoryImpl) DeleteContext(
	ctx context.Context, slateID string,
) error {
	err := remove(ctx, r.store, slateID, domain.SlateContext{})
	if err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	return nil
}
