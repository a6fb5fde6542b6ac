package application

import (
	"context"
	"crypto/ed25519"
	"errors"

	"github.com/mwswap/mwswapd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// SlateNegotiator drives the interactive building of transactions on both
// the send and the invoice tracks.
type SlateNegotiator struct {
	w *WalletService
}

// own is what the local party contributed to a slate.
type own struct {
	excess []byte
	nonce  []byte
	data   domain.ParticipantData
}

// negotiationRecord is everything a round persists, written in one db
// transaction.
type negotiationRecord struct {
	entry      *domain.TxLogEntry
	outputs    []domain.Output
	lockInputs []string
	account    *domain.Account
	context    *domain.SlateContext
	slate      *domain.Slate
}

// InitiateSend starts the standard track: it selects the inputs, builds the
// change and the sender contribution and returns the slatepack for the
// recipient. Inputs are locked only once the message has been encoded.
func (n *SlateNegotiator) InitiateSend(
	ctx context.Context, recipient string, amount uint64, policy FeePolicy,
) (string, error) {
	if amount == 0 {
		return "", domain.ErrZeroAmount
	}
	var recipients []ed25519.PublicKey
	if len(recipient) > 0 {
		key, err := n.w.codec.ParseAddress(recipient)
		if err != nil {
			return "", &domain.Error{
				Kind: domain.KindValidation, Op: "initiate send",
				Message: domain.ErrInvalidAddress.Message, Err: err,
			}
		}
		recipients = append(recipients, key)
	}

	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	policy = policy.resolve(w.cfg)

	tip, err := w.chainTip(ctx)
	if err != nil {
		return "", err
	}
	label, err := sess.repos.AccountRepository().GetActiveAccount(ctx)
	if err != nil {
		return "", withOp("initiate send", err)
	}
	account, err := sess.repos.AccountRepository().GetAccount(ctx, label)
	if err != nil {
		return "", withOp("initiate send", err)
	}

	candidates, err := sess.repos.OutputRepository().GetUnspentOutputsForAccount(ctx, label)
	if err != nil {
		return "", withOp("initiate send", err)
	}
	sel, err := selectCoins(
		eligibleOutputs(candidates, tip, policy.MinConfirmations), amount, policy,
	)
	if err != nil {
		return "", err
	}

	var ttl uint64
	if policy.TTLBlocks > 0 {
		ttl = tip + policy.TTLBlocks
	}
	slate, err := domain.NewSendSlate(amount, sel.fee, ttl)
	if err != nil {
		return "", err
	}

	changeOutputs, changeBlinds, err := w.buildOutputs(
		sess, account, splitChange(sel.change, policy.ChangeOutputs),
	)
	if err != nil {
		return "", err
	}
	inputBlinds, err := w.inputBlinds(sess, sel.inputs)
	if err != nil {
		return "", err
	}
	contribution, err := w.contribute(changeBlinds, inputBlinds, true)
	if err != nil {
		return "", err
	}
	if err := slate.AddParticipant(contribution.data); err != nil {
		return "", err
	}
	inputCommits := commits(sel.inputs)
	slate.Tx.Inputs = inputCommits
	slate.Tx.Outputs = commits(changeOutputs)

	if len(recipients) > 0 {
		sender, err := w.ownAddress(sess)
		if err != nil {
			return "", err
		}
		slate.PaymentProof = &domain.SlatePaymentProof{
			SenderAddress:   sender,
			ReceiverAddress: recipient,
		}
	}

	msg, err := w.encode(sess, slate, recipients)
	if err != nil {
		return "", err
	}

	sctx, err := w.newSlateContext(sess, slate.ID.String(), label, contribution)
	if err != nil {
		return "", err
	}
	entry := &domain.TxLogEntry{
		SlateID:         slate.ID.String(),
		AccountLabel:    label,
		Type:            domain.TxSent,
		CreationTS:      w.now(),
		AmountDebited:   sel.total,
		AmountCredited:  sel.change,
		Fee:             sel.fee,
		NumInputs:       len(sel.inputs),
		NumOutputs:      len(changeOutputs),
		TTLCutoffHeight: ttl,
	}
	if err := w.persist(ctx, sess, negotiationRecord{
		entry:      entry,
		outputs:    changeOutputs,
		lockInputs: inputCommits,
		account:    account,
		context:    sctx,
		slate:      slate,
	}); err != nil {
		return "", err
	}

	w.slateTransition(slate, "send initiated")
	return msg, nil
}

// InitiateInvoice starts the invoice track: the issuer adds its receive
// output and asks the payer to fund it. The fee is fixed here, assuming
// the payer uses one input and one change output.
func (n *SlateNegotiator) InitiateInvoice(
	ctx context.Context, amount uint64,
) (string, error) {
	if amount == 0 {
		return "", domain.ErrZeroAmount
	}

	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	account, err := sess.repos.AccountRepository().GetAccount(ctx, domain.SwapAccountLabel)
	if err != nil {
		return "", withOp("initiate invoice", err)
	}

	fee := calculateFee(w.cfg.BaseFee, 1, 2, 1)
	slate, err := domain.NewInvoiceSlate(amount, fee, 0)
	if err != nil {
		return "", err
	}

	outputs, blinds, err := w.buildOutputs(sess, account, []uint64{amount})
	if err != nil {
		return "", err
	}
	contribution, err := w.contribute(blinds, nil, false)
	if err != nil {
		return "", err
	}
	if err := slate.AddParticipant(contribution.data); err != nil {
		return "", err
	}
	slate.Tx.Outputs = commits(outputs)

	msg, err := w.encode(sess, slate, nil)
	if err != nil {
		return "", err
	}

	sctx, err := w.newSlateContext(sess, slate.ID.String(), account.Label, contribution)
	if err != nil {
		return "", err
	}
	entry := &domain.TxLogEntry{
		SlateID:        slate.ID.String(),
		AccountLabel:   account.Label,
		Type:           domain.TxReceived,
		CreationTS:     w.now(),
		AmountCredited: amount,
		Fee:            fee,
		NumOutputs:     len(outputs),
	}
	if err := w.persist(ctx, sess, negotiationRecord{
		entry:   entry,
		outputs: outputs,
		account: account,
		context: sctx,
		slate:   slate,
	}); err != nil {
		return "", err
	}

	w.slateTransition(slate, "invoice initiated")
	return msg, nil
}

// Advance applies the local round to a slate received from the
// counterparty: receive on Standard1, pay on Invoice1. The response is
// addressed back to the sender of the message, if known.
func (n *SlateNegotiator) Advance(ctx context.Context, message string) (string, error) {
	w := n.w
	slate, sender, err := w.codec.Decode(message)
	if err != nil {
		return "", &domain.Error{
			Kind: domain.KindValidation, Op: "advance",
			Message: "slatepack message is not valid", Err: err,
		}
	}
	if err := slate.ExpectState(domain.SlateStandard1, domain.SlateInvoice1); err != nil {
		return "", err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}

	_, err = sess.repos.TxLogRepository().GetEntryBySlateID(ctx, slate.ID.String())
	if err == nil {
		return "", domain.ErrSlateAlreadyProcessed
	}
	if !errors.Is(err, domain.ErrTxNotFound) {
		return "", withOp("advance", err)
	}

	var recipients []ed25519.PublicKey
	if sender != nil {
		recipients = append(recipients, sender)
	}

	if slate.State == domain.SlateStandard1 {
		return w.receive(ctx, sess, slate, recipients)
	}
	return w.pay(ctx, sess, slate, recipients)
}

// Finalize completes a slate at its penultimate round: it checks the
// counterparty signature, adds its own, aggregates the kernel and
// optionally posts the transaction.
func (n *SlateNegotiator) Finalize(
	ctx context.Context, message string, post, fluff bool,
) (string, error) {
	w := n.w
	slate, _, err := w.codec.Decode(message)
	if err != nil {
		return "", &domain.Error{
			Kind: domain.KindValidation, Op: "finalize",
			Message: "slatepack message is not valid", Err: err,
		}
	}
	if err := slate.ExpectState(domain.SlateStandard2, domain.SlateInvoice2); err != nil {
		return "", err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	slateID := slate.ID.String()

	entry, err := sess.repos.TxLogRepository().GetEntryBySlateID(ctx, slateID)
	if err != nil {
		return "", withOp("finalize", err)
	}
	if entry.IsCancelled() {
		return "", domain.ErrTxAlreadyCancelled
	}
	if entry.Finalized {
		return "", domain.ErrSlateAlreadyFinalized
	}
	stored, err := sess.repos.SlateRepository().GetSlate(ctx, slateID)
	if err != nil {
		return "", withOp("finalize", err)
	}
	if !stored.SameTerms(slate) {
		return "", domain.ErrSlateTermsMismatch
	}
	sctx, err := sess.repos.SlateRepository().GetContext(ctx, slateID)
	if err != nil {
		return "", withOp("finalize", err)
	}
	excess, nonce, err := w.openSlateContext(sess, sctx)
	if err != nil {
		return "", err
	}

	mine, ok := slate.Participant(sctx.PublicExcess)
	if !ok {
		return "", domain.ErrSlateTermsMismatch
	}
	counterparty, ok := slate.Counterparty(sctx.PublicExcess)
	if !ok || !counterparty.HasSigned() {
		return "", domain.ErrInvalidPartialSignature
	}

	totalExcess, totalNonce, err := w.totals(slate)
	if err != nil {
		return "", err
	}
	kernelMsg := w.crypto.KernelMessage(domain.PlainKernel, slate.Fee)
	if err := w.crypto.VerifyPartial(
		counterparty.PartialSig, counterparty.PublicBlindExcess,
		counterparty.PublicNonce, totalExcess, totalNonce, kernelMsg,
	); err != nil {
		return "", &domain.Error{
			Kind: domain.KindIntegrity, Op: "finalize",
			Message: domain.ErrInvalidPartialSignature.Message, Err: err,
		}
	}
	partial, err := w.crypto.PartialSign(excess, nonce, totalExcess, totalNonce, kernelMsg)
	if err != nil {
		return "", withOp("finalize", err)
	}
	mine.PartialSig = partial

	sig, err := w.crypto.Aggregate(slate.PartialSignatures(), totalNonce)
	if err != nil {
		return "", withOp("finalize", err)
	}
	if err := w.crypto.VerifySignature(sig, totalExcess, kernelMsg); err != nil {
		return "", ErrInvalidSignature
	}
	if err := slate.Finalize(domain.TxKernel{
		Features:  domain.PlainKernel,
		Fee:       slate.Fee,
		Excess:    totalExcess,
		ExcessSig: sig,
	}); err != nil {
		return "", err
	}
	if err := w.crypto.VerifyKernelSums(slate.Tx); err != nil {
		return "", ErrKernelSumMismatch
	}

	proof, err := w.completePaymentProof(sess, slate, totalExcess)
	if err != nil {
		return "", err
	}

	msg, err := w.encode(sess, slate, nil)
	if err != nil {
		return "", err
	}

	if _, err := sess.repos.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			if err := sess.repos.TxLogRepository().UpdateEntry(
				ctx, entry.ID,
				func(e *domain.TxLogEntry) (*domain.TxLogEntry, error) {
					if err := e.Finalize(totalExcess, proof); err != nil {
						return nil, err
					}
					return e, nil
				},
			); err != nil {
				return nil, err
			}
			if err := sess.repos.SlateRepository().SaveSlate(ctx, slate); err != nil {
				return nil, err
			}
			return nil, sess.repos.SlateRepository().DeleteContext(ctx, slateID)
		},
	); err != nil {
		return "", withOp("finalize", err)
	}

	w.slateTransition(slate, "slate finalized")

	if post {
		if err := w.postTx(ctx, slate.Tx, fluff); err != nil {
			return "", err
		}
		log.WithFields(log.Fields{
			"slate_id": slateID, "fluff": fluff,
		}).Info("transaction posted")
	}
	return msg, nil
}

// Cancel cancels the ledger entry with the given id, releasing the outputs
// locked by its slate and dropping the unconfirmed ones it created.
func (n *SlateNegotiator) Cancel(ctx context.Context, txID uint64) error {
	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return err
	}
	entry, err := sess.repos.TxLogRepository().GetEntry(ctx, txID)
	if err != nil {
		return withOp("cancel", err)
	}
	return w.cancel(ctx, sess, entry)
}

// CancelBySlate is Cancel for the entry of the given slate id.
func (n *SlateNegotiator) CancelBySlate(ctx context.Context, slateID string) error {
	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return err
	}
	entry, err := sess.repos.TxLogRepository().GetEntryBySlateID(ctx, slateID)
	if err != nil {
		return withOp("cancel", err)
	}
	return w.cancel(ctx, sess, entry)
}

// Repost submits again a finalized transaction not yet confirmed. It never
// changes the wallet state.
func (n *SlateNegotiator) Repost(ctx context.Context, txID uint64, fluff bool) error {
	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return err
	}
	entry, err := sess.repos.TxLogRepository().GetEntry(ctx, txID)
	if err != nil {
		return withOp("repost", err)
	}
	switch {
	case entry.IsCancelled():
		return domain.ErrTxAlreadyCancelled
	case !entry.Finalized:
		return domain.ErrTxNotFinalized
	case entry.Confirmed:
		return domain.ErrTxAlreadyConfirmed
	}

	slate, err := sess.repos.SlateRepository().GetSlate(ctx, entry.SlateID)
	if err != nil {
		return withOp("repost", err)
	}
	if _, ok := slate.Kernel(); !ok {
		return domain.ErrTxNotFinalized
	}
	if err := w.postTx(ctx, slate.Tx, fluff); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"tx_id": txID, "slate_id": entry.SlateID, "fluff": fluff,
	}).Info("transaction reposted")
	return nil
}

// Inspect decodes a slatepack message without touching the wallet.
func (n *SlateNegotiator) Inspect(message string) (*SlateInspection, error) {
	w := n.w
	slate, sender, err := w.codec.Decode(message)
	if err != nil {
		return nil, &domain.Error{
			Kind: domain.KindValidation, Op: "inspect",
			Message: "slatepack message is not valid", Err: err,
		}
	}

	info := &SlateInspection{
		ID:              slate.ID.String(),
		State:           slate.State.String(),
		Amount:          slate.Amount,
		Fee:             slate.Fee,
		TTLCutoffHeight: slate.TTLCutoffHeight,
		NumParticipants: len(slate.Participants),
		NumInputs:       len(slate.Tx.Inputs),
		NumOutputs:      len(slate.Tx.Outputs),
		IsInvoice:       slate.State.IsInvoice(),
	}
	if kernel, ok := slate.Kernel(); ok {
		info.KernelExcess = kernel.Excess
	}
	if sender != nil {
		if info.SenderAddress, err = w.codec.FormatAddress(sender); err != nil {
			return nil, withOp("inspect", err)
		}
	}
	return info, nil
}

// TransactionSlatepack encodes again the last stored slate of the given
// ledger entry.
func (n *SlateNegotiator) TransactionSlatepack(
	ctx context.Context, txID uint64,
) (string, error) {
	w := n.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	entry, err := sess.repos.TxLogRepository().GetEntry(ctx, txID)
	if err != nil {
		return "", withOp("transaction slatepack", err)
	}
	slate, err := sess.repos.SlateRepository().GetSlate(ctx, entry.SlateID)
	if err != nil {
		return "", withOp("transaction slatepack", err)
	}
	return w.encode(sess, slate, nil)
}

func (w *WalletService) receive(
	ctx context.Context, sess *session, slate *domain.Slate,
	recipients []ed25519.PublicKey,
) (string, error) {
	label, err := sess.repos.AccountRepository().GetActiveAccount(ctx)
	if err != nil {
		return "", withOp("receive", err)
	}
	account, err := sess.repos.AccountRepository().GetAccount(ctx, label)
	if err != nil {
		return "", withOp("receive", err)
	}

	outputs, blinds, err := w.buildOutputs(sess, account, []uint64{slate.Amount})
	if err != nil {
		return "", err
	}
	contribution, err := w.contribute(blinds, nil, false)
	if err != nil {
		return "", err
	}
	totalExcess, err := w.signRound(slate, contribution)
	if err != nil {
		return "", err
	}
	slate.Tx.Outputs = append(slate.Tx.Outputs, commits(outputs)...)

	var proof *domain.PaymentProof
	if slate.PaymentProof != nil {
		if proof, err = w.signPaymentProof(sess, slate, totalExcess); err != nil {
			return "", err
		}
	}

	if err := slate.Advance(); err != nil {
		return "", err
	}
	msg, err := w.encode(sess, slate, recipients)
	if err != nil {
		return "", err
	}

	entry := &domain.TxLogEntry{
		SlateID:         slate.ID.String(),
		AccountLabel:    label,
		Type:            domain.TxReceived,
		CreationTS:      w.now(),
		AmountCredited:  slate.Amount,
		Fee:             slate.Fee,
		NumOutputs:      len(outputs),
		KernelExcess:    totalExcess,
		TTLCutoffHeight: slate.TTLCutoffHeight,
		PaymentProof:    proof,
	}
	if err := w.persist(ctx, sess, negotiationRecord{
		entry:   entry,
		outputs: outputs,
		account: account,
		slate:   slate,
	}); err != nil {
		return "", err
	}

	w.slateTransition(slate, "slate received")
	return msg, nil
}

func (w *WalletService) pay(
	ctx context.Context, sess *session, slate *domain.Slate,
	recipients []ed25519.PublicKey,
) (string, error) {
	policy := FeePolicy{}.resolve(w.cfg)

	tip, err := w.chainTip(ctx)
	if err != nil {
		return "", err
	}
	account, err := sess.repos.AccountRepository().GetAccount(ctx, domain.SwapAccountLabel)
	if err != nil {
		return "", withOp("pay invoice", err)
	}
	candidates, err := sess.repos.OutputRepository().GetUnspentOutputsForAccount(
		ctx, account.Label,
	)
	if err != nil {
		return "", withOp("pay invoice", err)
	}
	sel, err := selectCoinsWithFee(
		eligibleOutputs(candidates, tip, policy.MinConfirmations),
		slate.Amount, slate.Fee, policy,
	)
	if err != nil {
		return "", err
	}

	changeOutputs, changeBlinds, err := w.buildOutputs(
		sess, account, splitChange(sel.change, policy.ChangeOutputs),
	)
	if err != nil {
		return "", err
	}
	inputBlinds, err := w.inputBlinds(sess, sel.inputs)
	if err != nil {
		return "", err
	}
	contribution, err := w.contribute(changeBlinds, inputBlinds, true)
	if err != nil {
		return "", err
	}
	totalExcess, err := w.signRound(slate, contribution)
	if err != nil {
		return "", err
	}
	inputCommits := commits(sel.inputs)
	slate.Tx.Inputs = append(slate.Tx.Inputs, inputCommits...)
	slate.Tx.Outputs = append(slate.Tx.Outputs, commits(changeOutputs)...)

	if err := slate.Advance(); err != nil {
		return "", err
	}
	msg, err := w.encode(sess, slate, recipients)
	if err != nil {
		return "", err
	}

	entry := &domain.TxLogEntry{
		SlateID:         slate.ID.String(),
		AccountLabel:    account.Label,
		Type:            domain.TxSent,
		CreationTS:      w.now(),
		AmountDebited:   sel.total,
		AmountCredited:  sel.change,
		Fee:             slate.Fee,
		NumInputs:       len(sel.inputs),
		NumOutputs:      len(changeOutputs),
		KernelExcess:    totalExcess,
		TTLCutoffHeight: slate.TTLCutoffHeight,
	}
	if err := w.persist(ctx, sess, negotiationRecord{
		entry:      entry,
		outputs:    changeOutputs,
		lockInputs: inputCommits,
		account:    account,
		slate:      slate,
	}); err != nil {
		return "", err
	}

	w.slateTransition(slate, "invoice paid")
	return msg, nil
}

func (w *WalletService) cancel(
	ctx context.Context, sess *session, entry *domain.TxLogEntry,
) error {
	if _, err := sess.repos.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return nil, w.cancelEntry(ctx, sess, entry.ID)
		},
	); err != nil {
		return withOp("cancel", err)
	}

	log.WithFields(log.Fields{
		"tx_id": entry.ID, "slate_id": entry.SlateID,
	}).Info("transaction cancelled")
	w.metrics.SlateTransition(domain.SlateCancelled.String())
	return nil
}

// cancelEntry must run inside a db transaction.
func (w *WalletService) cancelEntry(
	ctx context.Context, sess *session, txID uint64,
) error {
	txLogRepo := sess.repos.TxLogRepository()
	outputRepo := sess.repos.OutputRepository()
	slateRepo := sess.repos.SlateRepository()

	var slateID string
	if err := txLogRepo.UpdateEntry(
		ctx, txID, func(e *domain.TxLogEntry) (*domain.TxLogEntry, error) {
			if err := e.Cancel(); err != nil {
				return nil, err
			}
			slateID = e.SlateID
			return e, nil
		},
	); err != nil {
		return err
	}

	if _, err := outputRepo.UnlockOutputs(ctx, slateID); err != nil {
		return err
	}
	created, err := outputRepo.GetOutputsForTxLog(ctx, txID)
	if err != nil {
		return err
	}
	for _, o := range created {
		if o.Status != domain.OutputUnconfirmed {
			continue
		}
		if err := outputRepo.DeleteOutput(ctx, o.Commit); err != nil {
			return err
		}
	}

	stored, err := slateRepo.GetSlate(ctx, slateID)
	if err != nil && !errors.Is(err, domain.ErrSlateNotFound) {
		return err
	}
	if stored != nil && stored.Cancel() == nil {
		if err := slateRepo.SaveSlate(ctx, stored); err != nil {
			return err
		}
	}
	return slateRepo.DeleteContext(ctx, slateID)
}

// signRound adds the local contribution to the slate and signs it. It
// returns the kernel excess the final transaction will carry.
func (w *WalletService) signRound(slate *domain.Slate, contribution *own) (string, error) {
	if err := slate.AddParticipant(contribution.data); err != nil {
		return "", err
	}
	totalExcess, totalNonce, err := w.totals(slate)
	if err != nil {
		return "", err
	}
	kernelMsg := w.crypto.KernelMessage(domain.PlainKernel, slate.Fee)
	partial, err := w.crypto.PartialSign(
		contribution.excess, contribution.nonce, totalExcess, totalNonce, kernelMsg,
	)
	if err != nil {
		return "", withOp("sign", err)
	}
	mine, _ := slate.Participant(contribution.data.PublicBlindExcess)
	mine.PartialSig = partial
	return totalExcess, nil
}

func (w *WalletService) totals(slate *domain.Slate) (string, string, error) {
	totalExcess, err := w.crypto.SumPublicKeys(slate.PublicExcesses())
	if err != nil {
		return "", "", withOp("sum excesses", err)
	}
	totalNonce, err := w.crypto.SumPublicKeys(slate.PublicNonces())
	if err != nil {
		return "", "", withOp("sum nonces", err)
	}
	return totalExcess, totalNonce, nil
}

// contribute computes the excess (positive minus negative blinds) and a
// fresh nonce of the local party.
func (w *WalletService) contribute(
	positive, negative [][]byte, isSender bool,
) (*own, error) {
	excess, err := w.crypto.BlindSum(positive, negative)
	if err != nil {
		return nil, withOp("blind sum", err)
	}
	nonce, err := w.crypto.NewSecretKey()
	if err != nil {
		return nil, withOp("nonce", err)
	}
	pubExcess, err := w.crypto.PublicKey(excess)
	if err != nil {
		return nil, withOp("public excess", err)
	}
	pubNonce, err := w.crypto.PublicKey(nonce)
	if err != nil {
		return nil, withOp("public nonce", err)
	}
	return &own{
		excess: excess,
		nonce:  nonce,
		data: domain.ParticipantData{
			IsSender:          isSender,
			PublicBlindExcess: pubExcess,
			PublicNonce:       pubNonce,
		},
	}, nil
}

// buildOutputs derives one fresh key per value from the account and
// commits to it. The account cursor is moved forward in memory only.
func (w *WalletService) buildOutputs(
	sess *session, account *domain.Account, values []uint64,
) ([]domain.Output, [][]byte, error) {
	outputs := make([]domain.Output, 0, len(values))
	blinds := make([][]byte, 0, len(values))
	for _, v := range values {
		path := account.NextKeyPath()
		blind, err := w.deriveKey(sess, path)
		if err != nil {
			return nil, nil, err
		}
		commit, err := w.crypto.Commit(v, blind)
		if err != nil {
			return nil, nil, withOp("commit", err)
		}
		outputs = append(outputs, domain.Output{
			Commit:       commit,
			Value:        v,
			Status:       domain.OutputUnconfirmed,
			KeyPath:      path,
			AccountLabel: account.Label,
		})
		blinds = append(blinds, blind)
	}
	return outputs, blinds, nil
}

func (w *WalletService) inputBlinds(
	sess *session, inputs []domain.Output,
) ([][]byte, error) {
	blinds := make([][]byte, 0, len(inputs))
	for _, in := range inputs {
		blind, err := w.deriveKey(sess, in.KeyPath)
		if err != nil {
			return nil, err
		}
		blinds = append(blinds, blind)
	}
	return blinds, nil
}

func (w *WalletService) persist(
	ctx context.Context, sess *session, rec negotiationRecord,
) error {
	slateID := rec.slate.ID.String()
	_, err := sess.repos.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			id, err := sess.repos.TxLogRepository().AddEntry(ctx, rec.entry)
			if err != nil {
				return nil, err
			}
			outputs := make([]domain.Output, 0, len(rec.outputs))
			for _, o := range rec.outputs {
				o.TxLogID = id
				outputs = append(outputs, o)
			}
			if err := sess.repos.OutputRepository().AddOutputs(ctx, outputs); err != nil {
				return nil, err
			}
			if len(rec.lockInputs) > 0 {
				if err := sess.repos.OutputRepository().LockOutputs(
					ctx, rec.lockInputs, slateID,
				); err != nil {
					return nil, err
				}
			}
			nextChild := rec.account.NextChild
			if err := sess.repos.AccountRepository().UpdateAccount(
				ctx, rec.account.Label,
				func(a *domain.Account) (*domain.Account, error) {
					if nextChild > a.NextChild {
						a.NextChild = nextChild
					}
					return a, nil
				},
			); err != nil {
				return nil, err
			}
			if rec.context != nil {
				if err := sess.repos.SlateRepository().SaveContext(ctx, rec.context); err != nil {
					return nil, err
				}
			}
			return nil, sess.repos.SlateRepository().SaveSlate(ctx, rec.slate)
		},
	)
	if err != nil {
		return withOp("persist slate", err)
	}
	return nil
}

func (w *WalletService) encode(
	sess *session, slate *domain.Slate, recipients []ed25519.PublicKey,
) (string, error) {
	msg, err := w.codec.Encode(slate, w.ownAddressKey(sess), recipients)
	if err != nil {
		return "", withOp("encode slate", err)
	}
	return msg, nil
}

func (w *WalletService) postTx(
	ctx context.Context, tx domain.Transaction, fluff bool,
) error {
	buf, err := w.codec.EncodeTransaction(tx)
	if err != nil {
		return withOp("post tx", err)
	}
	if err := w.node.PostTx(ctx, buf, fluff); err != nil {
		return withOp("post tx", err)
	}
	return nil
}

func (w *WalletService) slateTransition(slate *domain.Slate, msg string) {
	w.metrics.SlateTransition(slate.State.String())
	log.WithFields(log.Fields{
		"slate_id": slate.ID.String(),
		"state":    slate.State.String(),
		"amount":   slate.Amount,
		"fee":      slate.Fee,
	}).Info(msg)
}

func commits(outputs []domain.Output) []string {
	list := make([]string, 0, len(outputs))
	for _, o := range outputs {
		list = append(list, o.Commit)
	}
	return list
}
