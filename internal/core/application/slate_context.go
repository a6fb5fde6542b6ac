package application

import (
	"encoding/hex"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"golang.org/x/crypto/blake2b"
)

const (
	excessTag = "excess"
	nonceTag  = "nonce"
)

func (w *WalletService) newSlateContext(
	sess *session, slateID, account string, contribution *own,
) (*domain.SlateContext, error) {
	excess, err := maskSecret(sess.contextKey, slateID, excessTag, contribution.excess)
	if err != nil {
		return nil, err
	}
	nonce, err := maskSecret(sess.contextKey, slateID, nonceTag, contribution.nonce)
	if err != nil {
		return nil, err
	}
	return &domain.SlateContext{
		SlateID:      slateID,
		AccountLabel: account,
		SecretExcess: hex.EncodeToString(excess),
		SecretNonce:  hex.EncodeToString(nonce),
		PublicExcess: contribution.data.PublicBlindExcess,
	}, nil
}

// openSlateContext returns the secret excess and nonce stored in the
// context.
func (w *WalletService) openSlateContext(
	sess *session, sctx *domain.SlateContext,
) ([]byte, []byte, error) {
	maskedExcess, err := hex.DecodeString(sctx.SecretExcess)
	if err != nil {
		return nil, nil, withOp("open slate context", err)
	}
	maskedNonce, err := hex.DecodeString(sctx.SecretNonce)
	if err != nil {
		return nil, nil, withOp("open slate context", err)
	}
	excess, err := maskSecret(sess.contextKey, sctx.SlateID, excessTag, maskedExcess)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := maskSecret(sess.contextKey, sctx.SlateID, nonceTag, maskedNonce)
	if err != nil {
		return nil, nil, err
	}

	pub, err := w.crypto.PublicKey(excess)
	if err != nil {
		return nil, nil, withOp("open slate context", err)
	}
	if pub != sctx.PublicExcess {
		return nil, nil, domain.NewIntegrityError("slate context does not match its public excess")
	}
	return excess, nonce, nil
}

// maskSecret xors the 32 bytes secret with a pad bound to the slate. The
// operation is its own inverse.
func maskSecret(key []byte, slateID, tag string, secret []byte) ([]byte, error) {
	if len(secret) != blake2b.Size256 {
		return nil, domain.NewValidationError("secret must be 32 bytes long")
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, withOp("mask secret", err)
	}
	h.Write([]byte(slateID))
	h.Write([]byte(tag))
	pad := h.Sum(nil)

	out := make([]byte, len(secret))
	for i := range secret {
		out[i] = secret[i] ^ pad[i]
	}
	return out, nil
}
