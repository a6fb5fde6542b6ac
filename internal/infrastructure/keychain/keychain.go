package keychain

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/pkg/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/yiplee/go-cache"
	"golang.org/x/crypto/blake2b"
)

const (
	seedFilename = "wallet.seed"
	// DefaultMnemonicWords is used when Create is not told otherwise.
	DefaultMnemonicWords = 24
	maskLen              = 32
)

var (
	// ErrKeychainExists ...
	ErrKeychainExists = errors.New("a wallet seed already exists in the data directory")
	// ErrKeychainNotFound ...
	ErrKeychainNotFound = errors.New("no wallet seed found in the data directory")
	// ErrKeychainLocked ...
	ErrKeychainLocked = errors.New("keychain is not open")
	// ErrInvalidMask ...
	ErrInvalidMask = errors.New("keychain mask is not valid")
	// ErrInvalidMnemonicLength ...
	ErrInvalidMnemonicLength = errors.New("mnemonic length must be one of 12, 15, 18, 21, 24")
)

type keychain struct {
	lock      sync.RWMutex
	seedPath  string
	seed      []byte
	maskCheck []byte
	addresses *cache.Cache[uint32, ed25519.PrivateKey]
}

// NewKeychain returns a keychain keeping its encrypted mnemonic in datadir.
// While open the seed is held XOR-ed with a pad derived from the mask
// handed to the caller.
func NewKeychain(datadir string) ports.Keychain {
	return &keychain{
		seedPath:  filepath.Join(datadir, seedFilename),
		addresses: cache.New[uint32, ed25519.PrivateKey](),
	}
}

func (k *keychain) Exists() bool {
	_, err := os.Stat(k.seedPath)
	return err == nil
}

func (k *keychain) Create(passphrase string, mnemonicWords int) ([]string, error) {
	if mnemonicWords == 0 {
		mnemonicWords = DefaultMnemonicWords
	}
	entropySize, ok := wallet.WordsToEntropySize[mnemonicWords]
	if !ok {
		return nil, ErrInvalidMnemonicLength
	}
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{
		EntropySize: entropySize,
	})
	if err != nil {
		return nil, err
	}
	if err := k.store(passphrase, mnemonic); err != nil {
		return nil, err
	}
	return mnemonic, nil
}

func (k *keychain) Recover(passphrase string, mnemonic []string) error {
	if !wallet.IsMnemonicValid(mnemonic) {
		return wallet.ErrInvalidMnemonic
	}
	return k.store(passphrase, mnemonic)
}

func (k *keychain) Open(passphrase string) ([]byte, error) {
	mnemonic, err := k.Mnemonic(passphrase)
	if err != nil {
		return nil, err
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	mask := make([]byte, maskLen)
	if _, err := rand.Read(mask); err != nil {
		return nil, err
	}
	check := blake2b.Sum256(mask)

	k.lock.Lock()
	defer k.lock.Unlock()

	k.seed = xorPad(seed, mask)
	k.maskCheck = check[:]
	k.addresses = cache.New[uint32, ed25519.PrivateKey]()

	log.Debug("keychain opened")
	return mask, nil
}

func (k *keychain) Mnemonic(passphrase string) ([]string, error) {
	buf, err := os.ReadFile(k.seedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeychainNotFound
		}
		return nil, err
	}
	plaintext, err := wallet.Decrypt(wallet.DecryptOpts{
		CypherText: strings.TrimSpace(string(buf)),
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}
	return strings.Split(string(plaintext), " "), nil
}

func (k *keychain) Close() {
	k.lock.Lock()
	defer k.lock.Unlock()

	for i := range k.seed {
		k.seed[i] = 0
	}
	k.seed = nil
	k.maskCheck = nil
	k.addresses = cache.New[uint32, ed25519.PrivateKey]()
}

func (k *keychain) DeriveKey(mask []byte, path string) ([]byte, error) {
	seed, err := k.unmaskedSeed(mask)
	if err != nil {
		return nil, err
	}
	derivationPath, err := wallet.ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}
	return wallet.DeriveSigningKey(seed, derivationPath)
}

// AddressKey returns the ed25519 key behind the slatepack address with the
// given index. It is derived from the secp key at m/0/1/<index>.
func (k *keychain) AddressKey(mask []byte, index uint32) (ed25519.PrivateKey, error) {
	if _, err := k.unmaskedSeed(mask); err != nil {
		return nil, err
	}

	k.lock.RLock()
	addresses := k.addresses
	k.lock.RUnlock()

	if key, ok := addresses.Get(index); ok {
		return key, nil
	}

	secret, err := k.DeriveKey(mask, fmt.Sprintf("m/0/1/%d", index))
	if err != nil {
		return nil, err
	}
	seed := blake2b.Sum256(secret)
	key := ed25519.NewKeyFromSeed(seed[:])
	addresses.Set(index, key)
	return key, nil
}

func (k *keychain) store(passphrase string, mnemonic []string) error {
	if k.Exists() {
		return ErrKeychainExists
	}
	cypher, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  []byte(strings.Join(mnemonic, " ")),
		Passphrase: passphrase,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(k.seedPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(k.seedPath, []byte(cypher), 0o600)
}

func (k *keychain) unmaskedSeed(mask []byte) ([]byte, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	if k.seed == nil {
		return nil, ErrKeychainLocked
	}
	check := blake2b.Sum256(mask)
	if len(mask) != maskLen || subtle.ConstantTimeCompare(check[:], k.maskCheck) != 1 {
		return nil, ErrInvalidMask
	}
	return xorPad(k.seed, mask), nil
}

func xorPad(data, mask []byte) []byte {
	pad := blake2b.Sum512(mask)
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ pad[i%len(pad)]
	}
	return out
}
