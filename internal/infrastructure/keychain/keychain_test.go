package keychain_test

import (
	"os"
	"testing"

	"github.com/mwswap/mwswapd/internal/infrastructure/keychain"
	"github.com/mwswap/mwswapd/pkg/wallet"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	wallet.KeyStretchingCost = 1 << 10
	os.Exit(m.Run())
}

func TestKeychain(t *testing.T) {
	t.Run("create open and derive", testCreateOpenDerive())
	t.Run("recover", testRecover())
	t.Run("mask", testMask())
}

func testCreateOpenDerive() func(*testing.T) {
	return func(t *testing.T) {
		kc := keychain.NewKeychain(t.TempDir())
		require.False(t, kc.Exists())

		_, err := kc.Open("pass")
		require.ErrorIs(t, err, keychain.ErrKeychainNotFound)

		mnemonic, err := kc.Create("pass", 12)
		require.NoError(t, err)
		require.Len(t, mnemonic, 12)
		require.True(t, kc.Exists())

		_, err = kc.Create("pass", 12)
		require.ErrorIs(t, err, keychain.ErrKeychainExists)

		_, err = kc.Open("wrong")
		require.ErrorIs(t, err, wallet.ErrInvalidPassphrase)

		mask, err := kc.Open("pass")
		require.NoError(t, err)

		key, err := kc.DeriveKey(mask, "m/0/0/0")
		require.NoError(t, err)
		require.Len(t, key, 32)
		again, err := kc.DeriveKey(mask, "m/0/0/0")
		require.NoError(t, err)
		require.Equal(t, key, again)

		addr, err := kc.AddressKey(mask, 0)
		require.NoError(t, err)
		cached, err := kc.AddressKey(mask, 0)
		require.NoError(t, err)
		require.Equal(t, addr, cached)

		words, err := kc.Mnemonic("pass")
		require.NoError(t, err)
		require.Equal(t, mnemonic, words)

		kc.Close()
		_, err = kc.DeriveKey(mask, "m/0/0/0")
		require.ErrorIs(t, err, keychain.ErrKeychainLocked)
	}
}

func testRecover() func(*testing.T) {
	return func(t *testing.T) {
		original := keychain.NewKeychain(t.TempDir())
		mnemonic, err := original.Create("pass", 24)
		require.NoError(t, err)
		mask, err := original.Open("pass")
		require.NoError(t, err)
		key, err := original.DeriveKey(mask, "m/1/0/3")
		require.NoError(t, err)

		restored := keychain.NewKeychain(t.TempDir())
		require.ErrorIs(
			t, restored.Recover("other", []string{"bad", "words"}),
			wallet.ErrInvalidMnemonic,
		)
		require.NoError(t, restored.Recover("other", mnemonic))
		mask2, err := restored.Open("other")
		require.NoError(t, err)
		key2, err := restored.DeriveKey(mask2, "m/1/0/3")
		require.NoError(t, err)
		require.Equal(t, key, key2)
	}
}

func testMask() func(*testing.T) {
	return func(t *testing.T) {
		kc := keychain.NewKeychain(t.TempDir())
		_, err := kc.Create("pass", 0)
		require.NoError(t, err)

		mask, err := kc.Open("pass")
		require.NoError(t, err)

		forged := append([]byte{}, mask...)
		forged[0] ^= 0xff
		_, err = kc.DeriveKey(forged, "m/0/0/0")
		require.ErrorIs(t, err, keychain.ErrInvalidMask)
		_, err = kc.AddressKey(nil, 0)
		require.ErrorIs(t, err, keychain.ErrInvalidMask)

		// reopening rotates the mask
		newMask, err := kc.Open("pass")
		require.NoError(t, err)
		_, err = kc.DeriveKey(mask, "m/0/0/0")
		require.ErrorIs(t, err, keychain.ErrInvalidMask)
		_, err = kc.DeriveKey(newMask, "m/0/0/0")
		require.NoError(t, err)
	}
}
