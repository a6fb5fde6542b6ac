package wallet

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// DeriveSigningKey walks the path from the master node of the seed and
// returns the raw 32 bytes private key found there.
func DeriveSigningKey(seed []byte, path DerivationPath) ([]byte, error) {
	if len(seed) <= 0 {
		return nil, ErrNullSeed
	}
	if len(path) <= 0 {
		return nil, ErrNullDerivationPath
	}

	hdNode, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	for _, step := range path {
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return nil, err
		}
	}

	privateKey, err := hdNode.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return privateKey.Serialize(), nil
}
