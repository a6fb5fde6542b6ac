package application

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/mwswap/mwswapd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// PaymentProofService exports and checks the proofs that a sender paid a
// given recipient.
type PaymentProofService struct {
	w *WalletService
}

// PaymentProof returns the json export of the proof stored with the given
// ledger entry. Only the sender of a finalized transaction has one.
func (p *PaymentProofService) PaymentProof(
	ctx context.Context, txID uint64,
) (string, error) {
	w := p.w
	w.lock.Lock()
	defer w.lock.Unlock()

	sess, err := w.session()
	if err != nil {
		return "", err
	}
	entry, err := sess.repos.TxLogRepository().GetEntry(ctx, txID)
	if err != nil {
		return "", withOp("payment proof", err)
	}
	if !entry.Finalized {
		return "", domain.ErrTxNotFinalized
	}
	proof := entry.PaymentProof
	if proof == nil || len(proof.SenderSig) <= 0 {
		return "", domain.ErrPaymentProofNotFound
	}

	buf, err := json.Marshal(PaymentProofExport{
		Amount:           proof.Amount,
		Excess:           proof.Excess,
		RecipientAddress: proof.RecipientAddress,
		RecipientSig:     proof.RecipientSig,
		SenderAddress:    proof.SenderAddress,
		SenderSig:        proof.SenderSig,
	})
	if err != nil {
		return "", withOp("payment proof", err)
	}
	return string(buf), nil
}

// VerifyPaymentProof checks both signatures of an exported proof and that
// its kernel is on chain. It also tells whether this wallet is the sender
// or the recipient of the payment.
func (p *PaymentProofService) VerifyPaymentProof(
	ctx context.Context, payload string,
) (isSender, isRecipient bool, err error) {
	w := p.w

	var proof PaymentProofExport
	if err := json.Unmarshal([]byte(payload), &proof); err != nil {
		return false, false, ErrMalformedPaymentProof
	}
	if proof.Amount == 0 || len(proof.Excess) <= 0 ||
		len(proof.RecipientSig) <= 0 || len(proof.SenderSig) <= 0 {
		return false, false, ErrMalformedPaymentProof
	}
	recipient, err := w.codec.ParseAddress(proof.RecipientAddress)
	if err != nil {
		return false, false, ErrMalformedPaymentProof
	}
	sender, err := w.codec.ParseAddress(proof.SenderAddress)
	if err != nil {
		return false, false, ErrMalformedPaymentProof
	}

	msg := paymentProofMessage(proof.Amount, proof.Excess, proof.SenderAddress)
	if !verifyProofSig(recipient, msg, proof.RecipientSig) ||
		!verifyProofSig(sender, msg, proof.SenderSig) {
		return false, false, domain.ErrInvalidPaymentProof
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	kernel, err := w.node.GetKernel(ctx, proof.Excess)
	if err != nil {
		return false, false, withOp("verify payment proof", err)
	}
	if kernel == nil {
		return false, false, domain.ErrKernelNotFound
	}

	if sess, err := w.session(); err == nil {
		own, err := w.ownAddress(sess)
		if err != nil {
			return false, false, err
		}
		isSender = own == proof.SenderAddress
		isRecipient = own == proof.RecipientAddress
	}

	log.WithFields(log.Fields{
		"excess": proof.Excess, "height": kernel.GetHeight(),
	}).Debug("payment proof verified")
	return isSender, isRecipient, nil
}

// signPaymentProof is run by the recipient: it signs the proof request
// carried by the slate over the final kernel excess.
func (w *WalletService) signPaymentProof(
	sess *session, slate *domain.Slate, excess string,
) (*domain.PaymentProof, error) {
	req := slate.PaymentProof
	own, err := w.ownAddress(sess)
	if err != nil {
		return nil, err
	}
	if req.ReceiverAddress != own {
		return nil, domain.ErrInvalidPaymentProof
	}
	if _, err := w.codec.ParseAddress(req.SenderAddress); err != nil {
		return nil, ErrMalformedPaymentProof
	}

	msg := paymentProofMessage(slate.Amount, excess, req.SenderAddress)
	req.ReceiverSignature = hex.EncodeToString(ed25519.Sign(sess.addressKey, msg))

	return &domain.PaymentProof{
		Amount:           slate.Amount,
		Excess:           excess,
		SenderAddress:    req.SenderAddress,
		RecipientAddress: req.ReceiverAddress,
		RecipientSig:     req.ReceiverSignature,
	}, nil
}

// completePaymentProof is run by the sender at finalization: it checks the
// recipient signature and adds its own. It returns nil if the slate carries
// no proof request or this wallet is not its sender.
func (w *WalletService) completePaymentProof(
	sess *session, slate *domain.Slate, excess string,
) (*domain.PaymentProof, error) {
	req := slate.PaymentProof
	if req == nil {
		return nil, nil
	}
	own, err := w.ownAddress(sess)
	if err != nil {
		return nil, err
	}
	if req.SenderAddress != own {
		return nil, nil
	}
	if len(req.ReceiverSignature) <= 0 {
		return nil, domain.ErrInvalidPaymentProof
	}
	recipient, err := w.codec.ParseAddress(req.ReceiverAddress)
	if err != nil {
		return nil, ErrMalformedPaymentProof
	}

	msg := paymentProofMessage(slate.Amount, excess, req.SenderAddress)
	if !verifyProofSig(recipient, msg, req.ReceiverSignature) {
		return nil, domain.ErrInvalidPaymentProof
	}

	return &domain.PaymentProof{
		Amount:           slate.Amount,
		Excess:           excess,
		SenderAddress:    req.SenderAddress,
		RecipientAddress: req.ReceiverAddress,
		RecipientSig:     req.ReceiverSignature,
		SenderSig:        hex.EncodeToString(ed25519.Sign(sess.addressKey, msg)),
	}, nil
}

// paymentProofMessage is amount (8 bytes big endian) | excess | sender
// address.
func paymentProofMessage(amount uint64, excess, senderAddress string) []byte {
	msg := make([]byte, 8, 8+len(excess)+len(senderAddress))
	binary.BigEndian.PutUint64(msg, amount)
	if buf, err := hex.DecodeString(excess); err == nil {
		msg = append(msg, buf...)
	} else {
		msg = append(msg, excess...)
	}
	return append(msg, senderAddress...)
}

func verifyProofSig(key ed25519.PublicKey, msg []byte, sig string) bool {
	buf, err := hex.DecodeString(sig)
	if err != nil || len(buf) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(key, msg, buf)
}
