package ports

import "github.com/mwswap/mwswapd/internal/core/domain"

// Crypto groups the commitment and signature arithmetic the negotiator and
// the swap coordinator need. Points are hex encoded compressed keys, secret
// scalars are raw 32 bytes.
type Crypto interface {
	NewSecretKey() ([]byte, error)
	PublicKey(secret []byte) (string, error)
	SumPublicKeys(keys []string) (string, error)
	BlindSum(positive, negative [][]byte) ([]byte, error)
	Commit(value uint64, blind []byte) (string, error)
	SharedCommitment(value uint64, publicKeys ...string) (string, error)

	KernelMessage(features uint8, fee uint64) []byte
	PartialSign(
		secretExcess, secretNonce []byte,
		totalExcess, totalNonce string, msg []byte,
	) (string, error)
	VerifyPartial(
		partialSig, publicExcess, publicNonce string,
		totalExcess, totalNonce string, msg []byte,
	) error
	Aggregate(partialSigs []string, totalNonce string) (string, error)
	VerifySignature(sig, publicKey string, msg []byte) error
	VerifyKernelSums(tx domain.Transaction) error

	Checksum(data []byte) string
}
