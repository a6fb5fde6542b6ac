package secp_test

import (
	"testing"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/internal/infrastructure/crypto/secp"
	"github.com/stretchr/testify/require"
)

func TestCrypto(t *testing.T) {
	t.Run("commitments are homomorphic", testCommitments())
	t.Run("aggregated signature over a balanced transaction", testTransaction())
	t.Run("checksum", testChecksum())
	t.Run("shared commitment", testSharedCommitment())
}

func testCommitments() func(*testing.T) {
	return func(t *testing.T) {
		c := secp.NewService()
		r1, r2 := newKey(t, c), newKey(t, c)

		c1, err := c.Commit(10, r1)
		require.NoError(t, err)
		c2, err := c.Commit(10, r1)
		require.NoError(t, err)
		require.Equal(t, c1, c2)

		c3, err := c.Commit(11, r1)
		require.NoError(t, err)
		require.NotEqual(t, c1, c3)

		// Commit(a, r1) + Commit(b, r2) == Commit(a+b, r1+r2)
		ca, err := c.Commit(3, r1)
		require.NoError(t, err)
		cb, err := c.Commit(4, r2)
		require.NoError(t, err)
		sum, err := c.SumPublicKeys([]string{ca, cb})
		require.NoError(t, err)
		r12, err := c.BlindSum([][]byte{r1, r2}, nil)
		require.NoError(t, err)
		c7, err := c.Commit(7, r12)
		require.NoError(t, err)
		require.Equal(t, c7, sum)

		_, err = c.BlindSum([][]byte{r1}, [][]byte{r1})
		require.ErrorIs(t, err, secp.ErrInvalidSecretKey)

		_, err = c.Commit(1, []byte{1, 2, 3})
		require.ErrorIs(t, err, secp.ErrInvalidSecretKey)
	}
}

func testTransaction() func(*testing.T) {
	return func(t *testing.T) {
		c := secp.NewService()
		const (
			inputValue  = 100
			amount      = 50
			fee         = 10
			changeValue = inputValue - amount - fee
		)

		rIn, rChange, rRecv := newKey(t, c), newKey(t, c), newKey(t, c)
		input, err := c.Commit(inputValue, rIn)
		require.NoError(t, err)
		change, err := c.Commit(changeValue, rChange)
		require.NoError(t, err)
		received, err := c.Commit(amount, rRecv)
		require.NoError(t, err)

		senderExcess, err := c.BlindSum([][]byte{rChange}, [][]byte{rIn})
		require.NoError(t, err)
		senderNonce := newKey(t, c)
		recvNonce := newKey(t, c)

		xs := pub(t, c, senderExcess)
		xr := pub(t, c, rRecv)
		rs := pub(t, c, senderNonce)
		rr := pub(t, c, recvNonce)

		totalExcess, err := c.SumPublicKeys([]string{xs, xr})
		require.NoError(t, err)
		totalNonce, err := c.SumPublicKeys([]string{rs, rr})
		require.NoError(t, err)
		msg := c.KernelMessage(domain.PlainKernel, fee)

		sigR, err := c.PartialSign(rRecv, recvNonce, totalExcess, totalNonce, msg)
		require.NoError(t, err)
		require.NoError(t, c.VerifyPartial(sigR, xr, rr, totalExcess, totalNonce, msg))
		require.ErrorIs(
			t, c.VerifyPartial(sigR, xs, rs, totalExcess, totalNonce, msg),
			secp.ErrInvalidSignature,
		)

		sigS, err := c.PartialSign(senderExcess, senderNonce, totalExcess, totalNonce, msg)
		require.NoError(t, err)
		require.NoError(t, c.VerifyPartial(sigS, xs, rs, totalExcess, totalNonce, msg))

		sig, err := c.Aggregate([]string{sigS, sigR}, totalNonce)
		require.NoError(t, err)
		require.NoError(t, c.VerifySignature(sig, totalExcess, msg))
		require.ErrorIs(
			t, c.VerifySignature(sig, totalExcess, c.KernelMessage(domain.PlainKernel, fee+1)),
			secp.ErrInvalidSignature,
		)

		tx := domain.Transaction{
			Inputs:  []string{input},
			Outputs: []string{change, received},
			Kernels: []domain.TxKernel{{Fee: fee, Excess: totalExcess, ExcessSig: sig}},
		}
		require.NoError(t, c.VerifyKernelSums(tx))

		tx.Kernels[0].Fee = fee + 1
		require.ErrorIs(t, c.VerifyKernelSums(tx), secp.ErrKernelSumMismatch)

		tx.Kernels = nil
		require.ErrorIs(t, c.VerifyKernelSums(tx), secp.ErrMissingKernel)
	}
}

func testChecksum() func(*testing.T) {
	return func(t *testing.T) {
		c := secp.NewService()
		payload := []byte(`{"id":1,"phase":"Init"}`)

		first := c.Checksum(payload)
		require.Equal(t, first, c.Checksum(payload))
		require.Len(t, first, 64)

		mutated := append([]byte{}, payload...)
		mutated[len(mutated)-2] = 'X'
		require.NotEqual(t, first, c.Checksum(mutated))
	}
}

func testSharedCommitment() func(*testing.T) {
	return func(t *testing.T) {
		c := secp.NewService()
		a, b := newKey(t, c), newKey(t, c)

		shared, err := c.SharedCommitment(42, pub(t, c, a), pub(t, c, b))
		require.NoError(t, err)

		ab, err := c.BlindSum([][]byte{a, b}, nil)
		require.NoError(t, err)
		expected, err := c.Commit(42, ab)
		require.NoError(t, err)
		require.Equal(t, expected, shared)
	}
}

func newKey(t *testing.T, c ports.Crypto) []byte {
	key, err := c.NewSecretKey()
	require.NoError(t, err)
	return key
}

func pub(t *testing.T, c ports.Crypto, secret []byte) string {
	key, err := c.PublicKey(secret)
	require.NoError(t, err)
	return key
}
