package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMnemonic(t *testing.T) {
	for words, size := range WordsToEntropySize {
		mnemonic, err := NewMnemonic(NewMnemonicOpts{EntropySize: size})
		require.NoError(t, err)
		require.Len(t, mnemonic, words)
		require.True(t, IsMnemonicValid(mnemonic))
	}

	_, err := NewMnemonic(NewMnemonicOpts{EntropySize: 100})
	require.ErrorIs(t, err, ErrInvalidEntropySize)
}

func TestDeriveSigningKey(t *testing.T) {
	mnemonic, err := NewMnemonic(NewMnemonicOpts{})
	require.NoError(t, err)
	seed, err := SeedFromMnemonic(mnemonic)
	require.NoError(t, err)
	require.Len(t, seed, 64)

	path, err := ParseDerivationPath("m/0/0/1")
	require.NoError(t, err)

	key, err := DeriveSigningKey(seed, path)
	require.NoError(t, err)
	require.Len(t, key, 32)

	again, err := DeriveSigningKey(seed, path)
	require.NoError(t, err)
	require.Equal(t, key, again)

	other, err := DeriveSigningKey(seed, path.Child(0))
	require.NoError(t, err)
	require.NotEqual(t, key, other)

	_, err = SeedFromMnemonic([]string{"not", "a", "mnemonic"})
	require.ErrorIs(t, err, ErrInvalidMnemonic)
	_, err = DeriveSigningKey(nil, path)
	require.ErrorIs(t, err, ErrNullSeed)
}
