package application

import (
	"context"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/pkg/wallet"
)

// OutputTracker is the read view over the outputs of the active account.
type OutputTracker struct {
	w *WalletService
}

// ListOutputs returns the outputs of the active account. Spent ones are
// left out unless includeSpent is set; refresh reconciles with the node
// first.
func (t *OutputTracker) ListOutputs(
	ctx context.Context, includeSpent, refresh bool,
) ([]OutputInfo, error) {
	w := t.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	if refresh {
		if _, err := w.scan(ctx, sess, false, 0, 0); err != nil {
			return nil, err
		}
	}

	tip, err := w.chainTip(ctx)
	if err != nil {
		return nil, err
	}
	account, err := sess.repos.AccountRepository().GetActiveAccount(ctx)
	if err != nil {
		return nil, withOp("list outputs", err)
	}
	outputs, err := sess.repos.OutputRepository().GetAllOutputs(ctx)
	if err != nil {
		return nil, withOp("list outputs", err)
	}

	infos := make([]OutputInfo, 0, len(outputs))
	for _, o := range outputs {
		if o.AccountLabel != account {
			continue
		}
		if o.Status == domain.OutputSpent && !includeSpent {
			continue
		}
		infos = append(infos, OutputInfo{
			Commit:        o.Commit,
			Value:         o.Value,
			Status:        o.Status.String(),
			Height:        o.Height,
			LockHeight:    o.LockHeight,
			IsCoinbase:    o.IsCoinbase,
			Confirmations: o.Confirmations(tip),
			Spendable:     o.IsSpendable(tip, w.cfg.MinConfirmations),
			AccountLabel:  o.AccountLabel,
			TxLogID:       o.TxLogID,
			LockedBy:      o.LockedBy,
			KeyID:         keyID(o.KeyPath),
		})
	}
	return infos, nil
}

// keyID is empty for outputs whose path cannot be parsed.
func keyID(path string) string {
	p, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return ""
	}
	return p.Identifier()
}
