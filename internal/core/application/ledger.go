package application

import (
	"context"

	"github.com/mwswap/mwswapd/internal/core/domain"
)

// TransactionLedger is the read view over the transaction log.
type TransactionLedger struct {
	w *WalletService
}

// ListTransactions returns the entries of the active account, oldest
// first.
func (l *TransactionLedger) ListTransactions(
	ctx context.Context, refresh bool,
) ([]TxInfo, error) {
	w := l.w
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
		return nil, withOp("list transactions", err)
	}
	entries, err := sess.repos.TxLogRepository().GetAllEntries(ctx)
	if err != nil {
		return nil, withOp("list transactions", err)
	}

	infos := make([]TxInfo, 0, len(entries))
	for _, e := range entries {
		if e.AccountLabel != account {
			continue
		}
		info, err := w.txInfo(ctx, sess, e, tip)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// GetTransaction returns the entry with the given id, whatever account it
// belongs to.
func (l *TransactionLedger) GetTransaction(
	ctx context.Context, txID uint64,
) (*TxInfo, error) {
	w := l.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	entry, err := sess.repos.TxLogRepository().GetEntry(ctx, txID)
	if err != nil {
		return nil, withOp("get transaction", err)
	}
	tip, err := w.chainTip(ctx)
	if err != nil {
		return nil, err
	}
	return w.txInfo(ctx, sess, *entry, tip)
}

// txInfo counts the confirmations of an entry as the ones of its least
// buried output.
func (w *WalletService) txInfo(
	ctx context.Context, sess *session, e domain.TxLogEntry, tip uint64,
) (*TxInfo, error) {
	var confirmations uint64
	if e.Confirmed {
		outputs, err := sess.repos.OutputRepository().GetOutputsForTxLog(ctx, e.ID)
		if err != nil {
			return nil, withOp("transaction info", err)
		}
		for i, o := range outputs {
			c := o.Confirmations(tip)
			if i == 0 || c < confirmations {
				confirmations = c
			}
		}
	}

	return &TxInfo{
		ID:              e.ID,
		SlateID:         e.SlateID,
		AccountLabel:    e.AccountLabel,
		Type:            e.Type.String(),
		Direction:       e.Direction(),
		Status:          e.Status(),
		Confirmations:   confirmations,
		CreationTS:      e.CreationTS,
		ConfirmationTS:  e.ConfirmationTS,
		AmountCredited:  e.AmountCredited,
		AmountDebited:   e.AmountDebited,
		Fee:             e.Fee,
		NumInputs:       e.NumInputs,
		NumOutputs:      e.NumOutputs,
		KernelExcess:    e.KernelExcess,
		TTLCutoffHeight: e.TTLCutoffHeight,
		RevertedAfter:   e.RevertedAfter,
		HasPaymentProof: e.PaymentProof != nil && len(e.PaymentProof.SenderSig) > 0,
	}, nil
}
