package application

import (
	"context"
	"strings"

	"github.com/mwswap/mwswapd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// ListAccounts ...
func (w *WalletService) ListAccounts(ctx context.Context) ([]AccountInfo, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	repo := sess.repos.AccountRepository()

	accounts, err := repo.GetAllAccounts(ctx)
	if err != nil {
		return nil, withOp("list accounts", err)
	}
	active, err := repo.GetActiveAccount(ctx)
	if err != nil {
		return nil, withOp("list accounts", err)
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		infos = append(infos, AccountInfo{
			Label:  a.Label,
			Path:   a.Path(),
			Active: a.Label == active,
		})
	}
	return infos, nil
}

// CreateAccount adds an account on the next free derivation index.
func (w *WalletService) CreateAccount(
	ctx context.Context, label string,
) (*AccountInfo, error) {
	label = strings.TrimSpace(label)
	if len(label) <= 0 {
		return nil, domain.ErrEmptyAccountLabel
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	repo := sess.repos.AccountRepository()

	res, err := sess.repos.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			accounts, err := repo.GetAllAccounts(ctx)
			if err != nil {
				return nil, err
			}
			var next uint32
			for _, a := range accounts {
				if a.Label == label {
					return nil, domain.ErrAccountAlreadyExists
				}
				if a.Index >= next {
					next = a.Index + 1
				}
			}
			account, err := domain.NewAccount(label, next)
			if err != nil {
				return nil, err
			}
			if err := repo.AddAccount(ctx, account); err != nil {
				return nil, err
			}
			return account, nil
		},
	)
	if err != nil {
		return nil, withOp("create account", err)
	}

	account := res.(*domain.Account)
	log.WithFields(log.Fields{
		"label": account.Label, "path": account.Path(),
	}).Info("account created")

	return &AccountInfo{Label: account.Label, Path: account.Path()}, nil
}

// SetActiveAccount selects the account used by sends and receives.
func (w *WalletService) SetActiveAccount(ctx context.Context, label string) error {
	label = strings.TrimSpace(label)
	if len(label) <= 0 {
		return domain.ErrEmptyAccountLabel
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return err
	}
	if err := sess.repos.AccountRepository().SetActiveAccount(ctx, label); err != nil {
		return withOp("set active account", err)
	}
	return nil
}

// ActiveAccount ...
func (w *WalletService) ActiveAccount(ctx context.Context) (string, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	label, err := sess.repos.AccountRepository().GetActiveAccount(ctx)
	if err != nil {
		return "", withOp("active account", err)
	}
	return label, nil
}
