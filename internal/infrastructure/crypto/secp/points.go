package secp

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
)

func parseScalar(b []byte) (*btcec.ModNScalar, error) {
	if len(b) != 32 {
		return nil, ErrInvalidSecretKey
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrInvalidSecretKey
	}
	return &s, nil
}

func parseSigScalar(sig string) (*btcec.ModNScalar, error) {
	buf, err := hex.DecodeString(sig)
	if err != nil || len(buf) != 32 {
		return nil, ErrInvalidSignature
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(buf); overflow {
		return nil, ErrInvalidSignature
	}
	return &s, nil
}

func valueScalar(v uint64) *btcec.ModNScalar {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], v)
	var s btcec.ModNScalar
	s.SetBytes(&buf)
	return &s
}

func parsePoint(str string) (*btcec.JacobianPoint, error) {
	buf, err := hex.DecodeString(str)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	key, err := btcec.ParsePubKey(buf)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	var p btcec.JacobianPoint
	key.AsJacobian(&p)
	return &p, nil
}

func canonicalPoint(str string) ([]byte, error) {
	p, err := parsePoint(str)
	if err != nil {
		return nil, err
	}
	return serializePoint(p)
}

func serializePoint(p *btcec.JacobianPoint) ([]byte, error) {
	affine := *p
	affine.ToAffine()
	if affine.X.IsZero() && affine.Y.IsZero() {
		return nil, ErrPointAtInfinity
	}
	return btcec.NewPublicKey(&affine.X, &affine.Y).SerializeCompressed(), nil
}

func encodePoint(p *btcec.JacobianPoint) (string, error) {
	buf, err := serializePoint(p)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func scalarBaseMult(k *btcec.ModNScalar) btcec.JacobianPoint {
	var r btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(k, &r)
	return r
}

func scalarMult(k *btcec.ModNScalar, p *btcec.JacobianPoint) btcec.JacobianPoint {
	var r btcec.JacobianPoint
	btcec.ScalarMultNonConst(k, p, &r)
	return r
}

func addPoints(a, b *btcec.JacobianPoint) btcec.JacobianPoint {
	var r btcec.JacobianPoint
	btcec.AddNonConst(a, b, &r)
	return r
}

func negatePoint(p *btcec.JacobianPoint) btcec.JacobianPoint {
	neg := *p
	neg.ToAffine()
	neg.Y.Negate(1)
	neg.Y.Normalize()
	return neg
}

func equalPoints(a, b *btcec.JacobianPoint) bool {
	aa, bb := *a, *b
	aa.ToAffine()
	bb.ToAffine()
	return aa.X.Equals(&bb.X) && aa.Y.Equals(&bb.Y)
}
