package ports

import "crypto/ed25519"

// Keychain is the keyed seed store. The mask returned by Open is the spend
// authority token every key derivation must present.
type Keychain interface {
	Exists() bool
	Create(passphrase string, mnemonicWords int) ([]string, error)
	Recover(passphrase string, mnemonic []string) error
	Open(passphrase string) ([]byte, error)
	Mnemonic(passphrase string) ([]string, error)
	Close()

	DeriveKey(mask []byte, path string) ([]byte, error)
	AddressKey(mask []byte, index uint32) (ed25519.PrivateKey, error)
}
