package application

import (
	"context"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
)

// Scan reconciles outputs and ledger with the chain. Outputs confirmed
// below the start height are trusted as they are; backwardsFromTip, if not
// zero, overrides startHeight with tip - backwardsFromTip. With
// deleteUnconfirmed every negotiation not finalized yet is cancelled.
func (w *WalletService) Scan(
	ctx context.Context, deleteUnconfirmed bool,
	startHeight, backwardsFromTip uint64,
) (*ScanResult, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return nil, err
	}
	return w.scan(ctx, sess, deleteUnconfirmed, startHeight, backwardsFromTip)
}

func (w *WalletService) scan(
	ctx context.Context, sess *session, deleteUnconfirmed bool,
	startHeight, backwardsFromTip uint64,
) (*ScanResult, error) {
	tip, err := w.chainTip(ctx)
	if err != nil {
		return nil, err
	}
	from := startHeight
	if backwardsFromTip > 0 {
		from = 0
		if tip > backwardsFromTip {
			from = tip - backwardsFromTip
		}
	}

	outputs, err := sess.repos.OutputRepository().GetAllOutputs(ctx)
	if err != nil {
		return nil, withOp("scan", err)
	}
	entries, err := sess.repos.TxLogRepository().GetAllEntries(ctx)
	if err != nil {
		return nil, withOp("scan", err)
	}

	// Every node request happens before the db transaction is opened.
	onChain, err := w.outputsOnChain(ctx, outputs)
	if err != nil {
		return nil, err
	}
	kernels, err := w.kernelsOnChain(ctx, entries)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Tip: tip, FromHeight: from}
	_, err = sess.repos.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			*res = ScanResult{Tip: tip, FromHeight: from}
			status, err := w.reconcileOutputs(ctx, sess, outputs, onChain, from, res)
			if err != nil {
				return nil, err
			}
			return nil, w.reconcileEntries(
				ctx, sess, entries, status, kernels, tip, deleteUnconfirmed, res,
			)
		},
	)
	if err != nil {
		return nil, withOp("scan", err)
	}

	log.WithFields(log.Fields{
		"tip":               res.Tip,
		"from":              res.FromHeight,
		"outputs_confirmed": res.OutputsConfirmed,
		"outputs_spent":     res.OutputsSpent,
		"outputs_reverted":  res.OutputsReverted,
		"txs_confirmed":     res.EntriesConfirmed,
		"txs_reverted":      res.EntriesReverted,
		"txs_cancelled":     res.EntriesCancelled,
	}).Info("wallet scanned")
	return res, nil
}

func (w *WalletService) outputsOnChain(
	ctx context.Context, outputs []domain.Output,
) (map[string]ports.NodeOutput, error) {
	commits := make([]string, 0, len(outputs))
	for _, o := range outputs {
		if o.Status != domain.OutputSpent {
			commits = append(commits, o.Commit)
		}
	}
	found := make(map[string]ports.NodeOutput)
	if len(commits) <= 0 {
		return found, nil
	}

	nodeOutputs, err := w.node.GetOutputs(ctx, commits)
	if err != nil {
		return nil, withOp("scan outputs", err)
	}
	for _, o := range nodeOutputs {
		found[o.GetCommit()] = o
	}
	return found, nil
}

func (w *WalletService) kernelsOnChain(
	ctx context.Context, entries []domain.TxLogEntry,
) (mapset.Set[string], error) {
	found := mapset.New[string]()
	for _, e := range entries {
		// confirmed entries are checked only if finalized here, so that a
		// kernel dropped by a reorg reverts them
		if e.IsCancelled() || len(e.KernelExcess) <= 0 ||
			(e.Confirmed && !e.Finalized) {
			continue
		}
		kernel, err := w.node.GetKernel(ctx, e.KernelExcess)
		if err != nil {
			return found, withOp("scan kernels", err)
		}
		if kernel != nil {
			found.Put(e.KernelExcess)
		}
	}
	return found, nil
}

// reconcileOutputs returns the status of every output after the pass.
func (w *WalletService) reconcileOutputs(
	ctx context.Context, sess *session, outputs []domain.Output,
	onChain map[string]ports.NodeOutput, from uint64, res *ScanResult,
) (map[string]domain.OutputStatus, error) {
	repo := sess.repos.OutputRepository()
	status := make(map[string]domain.OutputStatus, len(outputs))

	for _, o := range outputs {
		status[o.Commit] = o.Status
		nodeOutput, found := onChain[o.Commit]

		var update func(o *domain.Output)
		switch o.Status {
		case domain.OutputUnconfirmed:
			if !found {
				continue
			}
			height, coinbase := nodeOutput.GetHeight(), nodeOutput.IsCoinbase()
			update = func(o *domain.Output) {
				o.IsCoinbase = o.IsCoinbase || coinbase
				o.Confirm(height)
			}
			res.OutputsConfirmed++
		case domain.OutputUnspent, domain.OutputLocked:
			if found {
				if height := nodeOutput.GetHeight(); height != o.Height {
					update = func(o *domain.Output) { o.Confirm(height) }
				}
				break
			}
			if o.Height < from {
				continue
			}
			if o.IsLocked() {
				update = func(o *domain.Output) { o.Spend() }
				res.OutputsSpent++
			} else {
				update = func(o *domain.Output) { o.Revert() }
				res.OutputsReverted++
			}
		default:
			continue
		}
		if update == nil {
			continue
		}

		if err := repo.UpdateOutput(
			ctx, o.Commit, func(o *domain.Output) (*domain.Output, error) {
				update(o)
				status[o.Commit] = o.Status
				return o, nil
			},
		); err != nil {
			return nil, err
		}
	}
	return status, nil
}

func (w *WalletService) reconcileEntries(
	ctx context.Context, sess *session, entries []domain.TxLogEntry,
	status map[string]domain.OutputStatus, kernels mapset.Set[string],
	tip uint64, deleteUnconfirmed bool, res *ScanResult,
) error {
	txLogRepo := sess.repos.TxLogRepository()
	outputRepo := sess.repos.OutputRepository()
	now := w.now()

	for _, e := range entries {
		if e.IsCancelled() {
			continue
		}
		linked, err := outputRepo.GetOutputsForTxLog(ctx, e.ID)
		if err != nil {
			return err
		}

		switch {
		case e.Confirmed:
			outputsDropped := len(linked) > 0 &&
				allWithStatus(linked, status, domain.OutputUnconfirmed)
			kernelDropped := e.Finalized && !kernels.Has(e.KernelExcess)
			if !outputsDropped && !kernelDropped {
				continue
			}
			if err := txLogRepo.UpdateEntry(
				ctx, e.ID, func(e *domain.TxLogEntry) (*domain.TxLogEntry, error) {
					return e, e.Revert(now)
				},
			); err != nil {
				return err
			}
			res.EntriesReverted++

		case kernels.Has(e.KernelExcess) ||
			(e.Type == domain.TxReceived && len(linked) > 0 &&
				allWithStatus(linked, status, domain.OutputUnspent, domain.OutputLocked)):
			if err := txLogRepo.UpdateEntry(
				ctx, e.ID, func(e *domain.TxLogEntry) (*domain.TxLogEntry, error) {
					e.Confirm(now)
					return e, nil
				},
			); err != nil {
				return err
			}
			res.EntriesConfirmed++

		case !e.Finalized && e.Type != domain.TxReverted &&
			(deleteUnconfirmed || e.IsExpired(tip)):
			if err := w.cancelEntry(ctx, sess, e.ID); err != nil {
				return err
			}
			res.EntriesCancelled++
		}
	}
	return nil
}

func allWithStatus(
	outputs []domain.Output, current map[string]domain.OutputStatus,
	statuses ...domain.OutputStatus,
) bool {
	for _, o := range outputs {
		st, ok := current[o.Commit]
		if !ok {
			st = o.Status
		}
		match := false
		for _, s := range statuses {
			if st == s {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}
