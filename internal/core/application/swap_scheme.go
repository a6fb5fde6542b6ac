package application

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
)

// sigPlaceholder marks the witness slot the broadcaster fills with its
// signature.
const sigPlaceholder = "<sig>"

// legScheme is the collateral primitive of a currency: how a leg is
// locked so that the redeemer can take it with the secret and the refunder
// after the expiry.
type legScheme interface {
	ValidateKey(key string) error
	Lock(
		amount uint64, redeemKey, refundKey, secretHash string, expiry time.Time,
	) (*domain.LegLock, error)
	RedeemPlan(lock *domain.LegLock, secret string) *domain.SpendPlan
	RefundPlan(lock *domain.LegLock) *domain.SpendPlan
}

func newSchemes(crypto ports.Crypto, params *chaincfg.Params) map[domain.Currency]legScheme {
	return map[domain.Currency]legScheme{
		domain.CurrencyBTC:  btcScheme{params},
		domain.CurrencyGRIN: grinScheme{crypto},
	}
}

// btcScheme locks into a P2WSH hash time locked contract.
type btcScheme struct {
	params *chaincfg.Params
}

func (s btcScheme) ValidateKey(key string) error {
	_, err := parsePubKey(key)
	return err
}

func (s btcScheme) Lock(
	amount uint64, redeemKey, refundKey, secretHash string, expiry time.Time,
) (*domain.LegLock, error) {
	redeemPub, err := parsePubKey(redeemKey)
	if err != nil {
		return nil, err
	}
	refundPub, err := parsePubKey(refundKey)
	if err != nil {
		return nil, err
	}
	hash, err := hex.DecodeString(secretHash)
	if err != nil || len(hash) != sha256.Size {
		return nil, domain.NewValidationError("secret hash is not valid")
	}
	lockTime := expiry.Unix()

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_IF).
		AddOp(txscript.OP_SHA256).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddData(redeemPub.SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ELSE).
		AddInt64(lockTime).
		AddOp(txscript.OP_CHECKLOCKTIMEVERIFY).
		AddOp(txscript.OP_DROP).
		AddData(refundPub.SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ENDIF).
		Script()
	if err != nil {
		return nil, withOp("htlc script", err)
	}

	program := sha256.Sum256(script)
	addr, err := btcutil.NewAddressWitnessScriptHash(program[:], s.params)
	if err != nil {
		return nil, withOp("htlc address", err)
	}

	return &domain.LegLock{
		Currency:  domain.CurrencyBTC,
		Amount:    amount,
		Address:   addr.EncodeAddress(),
		Script:    hex.EncodeToString(script),
		LockTime:  lockTime,
		Expiry:    expiry.UTC(),
		RedeemKey: redeemKey,
		RefundKey: refundKey,
	}, nil
}

func (s btcScheme) RedeemPlan(lock *domain.LegLock, secret string) *domain.SpendPlan {
	return &domain.SpendPlan{
		Kind:     domain.SpendRedeem,
		Currency: domain.CurrencyBTC,
		Amount:   lock.Amount,
		Address:  lock.Address,
		Witness:  []string{sigPlaceholder, secret, "01", lock.Script},
	}
}

func (s btcScheme) RefundPlan(lock *domain.LegLock) *domain.SpendPlan {
	return &domain.SpendPlan{
		Kind:     domain.SpendRefund,
		Currency: domain.CurrencyBTC,
		Amount:   lock.Amount,
		Address:  lock.Address,
		Witness:  []string{sigPlaceholder, "", lock.Script},
		LockTime: lock.LockTime,
	}
}

// grinScheme locks into an output committed to the sum of both keys, so
// that it can only be spent by a slate signed by the two parties.
type grinScheme struct {
	crypto ports.Crypto
}

func (s grinScheme) ValidateKey(key string) error {
	_, err := parsePubKey(key)
	return err
}

func (s grinScheme) Lock(
	amount uint64, redeemKey, refundKey, _ string, expiry time.Time,
) (*domain.LegLock, error) {
	if err := s.ValidateKey(redeemKey); err != nil {
		return nil, err
	}
	if err := s.ValidateKey(refundKey); err != nil {
		return nil, err
	}
	commit, err := s.crypto.SharedCommitment(amount, redeemKey, refundKey)
	if err != nil {
		return nil, withOp("shared commitment", err)
	}
	return &domain.LegLock{
		Currency:  domain.CurrencyGRIN,
		Amount:    amount,
		Address:   commit,
		LockTime:  expiry.Unix(),
		Expiry:    expiry.UTC(),
		RedeemKey: redeemKey,
		RefundKey: refundKey,
	}, nil
}

func (s grinScheme) RedeemPlan(lock *domain.LegLock, secret string) *domain.SpendPlan {
	return &domain.SpendPlan{
		Kind:     domain.SpendRedeem,
		Currency: domain.CurrencyGRIN,
		Amount:   lock.Amount,
		Address:  lock.Address,
		Witness:  []string{secret},
	}
}

func (s grinScheme) RefundPlan(lock *domain.LegLock) *domain.SpendPlan {
	return &domain.SpendPlan{
		Kind:     domain.SpendRefund,
		Currency: domain.CurrencyGRIN,
		Amount:   lock.Amount,
		Address:  lock.Address,
		LockTime: lock.LockTime,
	}
}

func parsePubKey(key string) (*btcec.PublicKey, error) {
	buf, err := hex.DecodeString(key)
	if err != nil {
		return nil, domain.NewValidationError("public key is not valid hex")
	}
	pub, err := btcec.ParsePubKey(buf)
	if err != nil {
		return nil, domain.NewValidationError("public key is not a valid point")
	}
	return pub, nil
}
