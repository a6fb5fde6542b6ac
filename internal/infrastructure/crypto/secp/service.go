package secp

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	"golang.org/x/crypto/blake2b"
)

const (
	generatorHSeed = "mwswap/generator/H"
	signatureLen   = 33 + 32
)

var (
	// ErrInvalidSecretKey ...
	ErrInvalidSecretKey = errors.New("secret key is not valid")
	// ErrInvalidPoint ...
	ErrInvalidPoint = errors.New("point is not valid")
	// ErrPointAtInfinity ...
	ErrPointAtInfinity = errors.New("point at infinity")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("signature is not valid")
	// ErrKernelSumMismatch ...
	ErrKernelSumMismatch = errors.New("kernel excess does not balance inputs and outputs")
	// ErrMissingKernel ...
	ErrMissingKernel = errors.New("transaction has no kernel")
)

type service struct {
	h btcec.JacobianPoint
}

// NewService returns the secp256k1 implementation of the crypto context:
// Pedersen commitments v*H + r*G and aggregated Schnorr signatures whose
// challenge is blake2b(R || X || msg).
func NewService() ports.Crypto {
	return &service{generatorH()}
}

func (s *service) NewSecretKey() ([]byte, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (s *service) PublicKey(secret []byte) (string, error) {
	k, err := parseScalar(secret)
	if err != nil {
		return "", err
	}
	p := scalarBaseMult(k)
	return encodePoint(&p)
}

func (s *service) SumPublicKeys(keys []string) (string, error) {
	if len(keys) <= 0 {
		return "", ErrInvalidPoint
	}
	var sum btcec.JacobianPoint
	for _, k := range keys {
		p, err := parsePoint(k)
		if err != nil {
			return "", err
		}
		sum = addPoints(&sum, p)
	}
	return encodePoint(&sum)
}

func (s *service) BlindSum(positive, negative [][]byte) ([]byte, error) {
	var sum btcec.ModNScalar
	for _, b := range positive {
		k, err := parseScalar(b)
		if err != nil {
			return nil, err
		}
		sum.Add(k)
	}
	for _, b := range negative {
		k, err := parseScalar(b)
		if err != nil {
			return nil, err
		}
		sum.Add(k.Negate())
	}
	if sum.IsZero() {
		return nil, ErrInvalidSecretKey
	}
	buf := sum.Bytes()
	return buf[:], nil
}

func (s *service) Commit(value uint64, blind []byte) (string, error) {
	r, err := parseScalar(blind)
	if err != nil {
		return "", err
	}
	commitment := scalarBaseMult(r)
	if value > 0 {
		vh := scalarMult(valueScalar(value), &s.h)
		commitment = addPoints(&commitment, &vh)
	}
	return encodePoint(&commitment)
}

func (s *service) SharedCommitment(
	value uint64, publicKeys ...string,
) (string, error) {
	if len(publicKeys) <= 0 {
		return "", ErrInvalidPoint
	}
	var commitment btcec.JacobianPoint
	if value > 0 {
		commitment = scalarMult(valueScalar(value), &s.h)
	}
	for _, k := range publicKeys {
		p, err := parsePoint(k)
		if err != nil {
			return "", err
		}
		commitment = addPoints(&commitment, p)
	}
	return encodePoint(&commitment)
}

func (s *service) KernelMessage(features uint8, fee uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = features
	binary.BigEndian.PutUint64(buf[1:], fee)
	msg := blake2b.Sum256(buf)
	return msg[:]
}

func (s *service) PartialSign(
	secretExcess, secretNonce []byte,
	totalExcess, totalNonce string, msg []byte,
) (string, error) {
	x, err := parseScalar(secretExcess)
	if err != nil {
		return "", err
	}
	k, err := parseScalar(secretNonce)
	if err != nil {
		return "", err
	}
	e, err := challenge(totalNonce, totalExcess, msg)
	if err != nil {
		return "", err
	}

	var sig btcec.ModNScalar
	sig.Mul2(e, x).Add(k)
	buf := sig.Bytes()
	return hex.EncodeToString(buf[:]), nil
}

func (s *service) VerifyPartial(
	partialSig, publicExcess, publicNonce string,
	totalExcess, totalNonce string, msg []byte,
) error {
	sig, err := parseSigScalar(partialSig)
	if err != nil {
		return err
	}
	e, err := challenge(totalNonce, totalExcess, msg)
	if err != nil {
		return err
	}
	return verify(sig, e, publicNonce, publicExcess)
}

func (s *service) Aggregate(partialSigs []string, totalNonce string) (string, error) {
	if len(partialSigs) <= 0 {
		return "", ErrInvalidSignature
	}
	r, err := parsePoint(totalNonce)
	if err != nil {
		return "", err
	}
	rHex, err := encodePoint(r)
	if err != nil {
		return "", err
	}

	var sum btcec.ModNScalar
	for _, ps := range partialSigs {
		sig, err := parseSigScalar(ps)
		if err != nil {
			return "", err
		}
		sum.Add(sig)
	}
	buf := sum.Bytes()
	return rHex + hex.EncodeToString(buf[:]), nil
}

func (s *service) VerifySignature(sig, publicKey string, msg []byte) error {
	buf, err := hex.DecodeString(sig)
	if err != nil || len(buf) != signatureLen {
		return ErrInvalidSignature
	}
	nonce := hex.EncodeToString(buf[:33])
	sc, err := parseSigScalar(hex.EncodeToString(buf[33:]))
	if err != nil {
		return err
	}
	e, err := challenge(nonce, publicKey, msg)
	if err != nil {
		return err
	}
	return verify(sc, e, nonce, publicKey)
}

// VerifyKernelSums checks that outputs - inputs + fee*H equals the sum of
// the kernel excesses, that is no value was created.
func (s *service) VerifyKernelSums(tx domain.Transaction) error {
	if len(tx.Kernels) <= 0 {
		return ErrMissingKernel
	}

	var sum btcec.JacobianPoint
	for _, out := range tx.Outputs {
		p, err := parsePoint(out)
		if err != nil {
			return fmt.Errorf("output %s: %w", out, err)
		}
		sum = addPoints(&sum, p)
	}
	for _, in := range tx.Inputs {
		p, err := parsePoint(in)
		if err != nil {
			return fmt.Errorf("input %s: %w", in, err)
		}
		neg := negatePoint(p)
		sum = addPoints(&sum, &neg)
	}
	if fee := tx.Fee(); fee > 0 {
		fh := scalarMult(valueScalar(fee), &s.h)
		sum = addPoints(&sum, &fh)
	}

	var excess btcec.JacobianPoint
	for _, k := range tx.Kernels {
		p, err := parsePoint(k.Excess)
		if err != nil {
			return fmt.Errorf("kernel excess: %w", err)
		}
		excess = addPoints(&excess, p)
	}

	if !equalPoints(&sum, &excess) {
		return ErrKernelSumMismatch
	}
	return nil
}

func (s *service) Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func verify(sig, e *btcec.ModNScalar, nonce, publicKey string) error {
	r, err := parsePoint(nonce)
	if err != nil {
		return err
	}
	x, err := parsePoint(publicKey)
	if err != nil {
		return err
	}

	lhs := scalarBaseMult(sig)
	ex := scalarMult(e, x)
	rhs := addPoints(r, &ex)
	if !equalPoints(&lhs, &rhs) {
		return ErrInvalidSignature
	}
	return nil
}

func challenge(nonce, publicKey string, msg []byte) (*btcec.ModNScalar, error) {
	r, err := canonicalPoint(nonce)
	if err != nil {
		return nil, err
	}
	x, err := canonicalPoint(publicKey)
	if err != nil {
		return nil, err
	}

	h, _ := blake2b.New256(nil)
	h.Write(r)
	h.Write(x)
	h.Write(msg)

	var e btcec.ModNScalar
	e.SetByteSlice(h.Sum(nil))
	return &e, nil
}

func generatorH() btcec.JacobianPoint {
	var h btcec.JacobianPoint
	counter := make([]byte, 4)
	for i := uint32(0); ; i++ {
		binary.BigEndian.PutUint32(counter, i)
		x := blake2b.Sum256(append([]byte(generatorHSeed), counter...))
		key, err := btcec.ParsePubKey(append([]byte{0x02}, x[:]...))
		if err != nil {
			continue
		}
		key.AsJacobian(&h)
		return h
	}
}
