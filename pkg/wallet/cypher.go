package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"math/bits"

	"golang.org/x/crypto/scrypt"
)

// Seed envelope layout, base64 encoded:
//
//	version(1) | log2(N)(1) | salt(32) | nonce(12) | sealed mnemonic
//
// The first two bytes are authenticated as additional data so that the
// stretching cost cannot be tampered with.
const (
	envelopeVersion = 1
	headerLen       = 2
	saltLen         = 32
	nonceLen        = 12
	keyLen          = 32
	minEnvelopeLen  = headerLen + saltLen + nonceLen + 16
)

// KeyStretchingCost is the scrypt N parameter used for new envelopes. It
// must be a power of two. Existing envelopes carry their own cost, so
// lowering it in tests does not affect seeds created before.
var KeyStretchingCost = 1 << 20

// EncryptOpts is the struct given to Encrypt method
type EncryptOpts struct {
	PlainText  []byte
	Passphrase string
}

func (o EncryptOpts) validate() error {
	if len(o.PlainText) <= 0 {
		return ErrNullPlainText
	}
	if len(o.Passphrase) <= 0 {
		return ErrNullPassphrase
	}
	return nil
}

// Encrypt seals the plaintext with AES-256-GCM under a key stretched from
// the passphrase with scrypt.
func Encrypt(opts EncryptOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	logN := bits.Len(uint(KeyStretchingCost)) - 1
	if logN <= 1 || 1<<logN != KeyStretchingCost {
		return "", ErrInvalidStretchingCost
	}

	envelope := make([]byte, headerLen+saltLen+nonceLen)
	envelope[0], envelope[1] = envelopeVersion, byte(logN)
	salt := envelope[headerLen : headerLen+saltLen]
	nonce := envelope[headerLen+saltLen:]
	if _, err := rand.Read(envelope[headerLen:]); err != nil {
		return "", err
	}

	gcm, err := stretch(opts.Passphrase, salt, logN)
	if err != nil {
		return "", err
	}
	envelope = gcm.Seal(envelope, nonce, opts.PlainText, envelope[:headerLen])

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptOpts is the struct given to Decrypt method
type DecryptOpts struct {
	CypherText string
	Passphrase string
}

func (o DecryptOpts) validate() ([]byte, error) {
	if len(o.CypherText) <= 0 {
		return nil, ErrNullCypherText
	}
	buf, err := base64.StdEncoding.DecodeString(o.CypherText)
	if err != nil || len(buf) < minEnvelopeLen {
		return nil, ErrInvalidCypherText
	}
	if len(o.Passphrase) <= 0 {
		return nil, ErrNullPassphrase
	}
	return buf, nil
}

// Decrypt opens an envelope produced by Encrypt. A wrong passphrase
// results in ErrInvalidPassphrase.
func Decrypt(opts DecryptOpts) ([]byte, error) {
	envelope, err := opts.validate()
	if err != nil {
		return nil, err
	}
	if envelope[0] != envelopeVersion {
		return nil, ErrUnsupportedEnvelope
	}
	logN := int(envelope[1])
	if logN <= 1 || logN >= 32 {
		return nil, ErrInvalidCypherText
	}

	salt := envelope[headerLen : headerLen+saltLen]
	nonce := envelope[headerLen+saltLen : headerLen+saltLen+nonceLen]
	sealed := envelope[headerLen+saltLen+nonceLen:]

	gcm, err := stretch(opts.Passphrase, salt, logN)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, envelope[:headerLen])
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}

func stretch(passphrase string, salt []byte, logN int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, 1<<logN, 8, 1, keyLen)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
