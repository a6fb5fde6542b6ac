package dbbadger

import (
	"context"
	"sort"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const walletSettingsKey = "settings"

// WalletSettings holds the wallet-wide preferences persisted next to the
// accounts.
type WalletSettings struct {
	ActiveAccount string
}

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

func newAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return &accountRepositoryImpl{store}
}

func (r *accountRepositoryImpl) AddAccount(
	ctx context.Context, account *domain.Account,
) error {
	if account == nil || len(account.Label) <= 0 {
		return domain.ErrEmptyAccountLabel
	}
	if err := insert(ctx, r.store, account.Label, *account); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

func (r *accountRepositoryImpl) GetAccount(
	ctx context.Context, label string,
) (*domain.Account, error) {
	var account domain.Account
	if err := get(ctx, r.store, label, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepositoryImpl) GetAllAccounts(
	ctx context.Context,
) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := find(ctx, r.store, &accounts, nil); err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts, nil
}

func (r *accountRepositoryImpl) UpdateAccount(
	ctx context.Context, label string,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	account, err := r.GetAccount(ctx, label)
	if err != nil {
		return err
	}

	updated, err := updateFn(account)
	if err != nil {
		return err
	}
	return update(ctx, r.store, label, *updated)
}

// GetActiveAccount returns the selected account, falling back to the
// default one when none was ever selected.
func (r *accountRepositoryImpl) GetActiveAccount(
	ctx context.Context,
) (string, error) {
	var settings WalletSettings
	if err := get(ctx, r.store, walletSettingsKey, &settings); err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.DefaultAccountLabel, nil
		}
		return "", err
	}
	if len(settings.ActiveAccount) <= 0 {
		return domain.DefaultAccountLabel, nil
	}
	return settings.ActiveAccount, nil
}

func (r *accountRepositoryImpl) SetActiveAccount(
	ctx context.Context, label string,
) error {
	if _, err := r.GetAccount(ctx, label); err != nil {
		return err
	}
	settings := WalletSettings{ActiveAccount: label}
	return upsert(ctx, r.store, walletSettingsKey, settings)
}
