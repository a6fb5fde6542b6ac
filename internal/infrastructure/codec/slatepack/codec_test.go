package slatepack_test

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/infrastructure/codec/slatepack"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	t.Run("address", testAddress())
	t.Run("encode decode", testEncodeDecode())
	t.Run("malformed", testMalformed())
}

func testAddress() func(*testing.T) {
	return func(t *testing.T) {
		c := slatepack.NewCodec(slatepack.MainnetHRP)
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		addr, err := c.FormatAddress(pub)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(addr, "grin1"))

		parsed, err := c.ParseAddress(addr)
		require.NoError(t, err)
		require.Equal(t, pub, parsed)

		testnet := slatepack.NewCodec(slatepack.TestnetHRP)
		_, err = testnet.ParseAddress(addr)
		require.ErrorIs(t, err, slatepack.ErrInvalidAddress)

		_, err = c.ParseAddress("grin1notanaddress")
		require.ErrorIs(t, err, slatepack.ErrInvalidAddress)
	}
}

func testEncodeDecode() func(*testing.T) {
	return func(t *testing.T) {
		c := slatepack.NewCodec("")
		sender, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		recipient, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		slate, err := domain.NewSendSlate(1000, 20, 50)
		require.NoError(t, err)
		require.NoError(t, slate.AddParticipant(domain.ParticipantData{
			IsSender: true, PublicBlindExcess: "02aa", PublicNonce: "02bb",
		}))
		slate.Tx.Inputs = []string{"08cc"}

		msg, err := c.Encode(slate, sender, []ed25519.PublicKey{recipient})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(msg, "BEGINSLATEPACK. "))
		require.True(t, strings.HasSuffix(msg, ". ENDSLATEPACK."))

		got, from, err := c.Decode(msg)
		require.NoError(t, err)
		require.Equal(t, sender, from)
		require.Equal(t, slate.ID, got.ID)
		require.Equal(t, domain.SlateStandard1, got.State)
		require.Equal(t, slate.Participants, got.Participants)
		require.Equal(t, slate.Tx.Inputs, got.Tx.Inputs)
		require.Equal(t, uint64(50), got.TTLCutoffHeight)

		anonymous, err := c.Encode(slate, nil, nil)
		require.NoError(t, err)
		_, from, err = c.Decode(anonymous)
		require.NoError(t, err)
		require.Nil(t, from)
	}
}

func testMalformed() func(*testing.T) {
	return func(t *testing.T) {
		c := slatepack.NewCodec("")
		slate, err := domain.NewInvoiceSlate(10, 1, 0)
		require.NoError(t, err)
		msg, err := c.Encode(slate, nil, nil)
		require.NoError(t, err)

		tests := []string{
			"",
			"hello",
			"BEGINSLATEPACK. ENDSLATEPACK.",
			strings.Replace(msg, "BEGINSLATEPACK.", "BEGIN.", 1),
		}
		for _, m := range tests {
			_, _, err := c.Decode(m)
			require.ErrorIs(t, err, slatepack.ErrMalformedMessage, m)
		}

		// flipping one character breaks the checksum
		body := []byte(msg)
		idx := len("BEGINSLATEPACK. ") + 3
		if body[idx] == 'a' {
			body[idx] = 'b'
		} else {
			body[idx] = 'a'
		}
		_, _, err = c.Decode(string(body))
		require.Error(t, err)

		_, err = c.EncodeTransaction(domain.Transaction{})
		require.ErrorIs(t, err, slatepack.ErrMalformedMessage)
	}
}
