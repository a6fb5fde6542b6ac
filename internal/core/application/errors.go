package application

import (
	"github.com/mwswap/mwswapd/internal/core/domain"
)

var (
	// ErrNoKeychain is returned when opening a data dir that holds no seed.
	ErrNoKeychain = domain.NewPreconditionError("no wallet found in data directory")
	// ErrKeychainExists ...
	ErrKeychainExists = domain.NewPreconditionError("a wallet already exists in data directory")
	// ErrKernelSumMismatch ...
	ErrKernelSumMismatch = domain.NewIntegrityError("transaction kernel sums do not balance")
	// ErrInvalidSignature ...
	ErrInvalidSignature = domain.NewIntegrityError("aggregated signature is not valid")
	// ErrMalformedPaymentProof ...
	ErrMalformedPaymentProof = domain.NewValidationError("payment proof is malformed")
	// ErrInvalidPeerHost ...
	ErrInvalidPeerHost = domain.NewValidationError("swap peer host is not valid")
	// ErrInvalidPeerPort ...
	ErrInvalidPeerPort = domain.NewValidationError("swap peer port is not valid")
	// ErrEmptySwapDirectory ...
	ErrEmptySwapDirectory = domain.NewValidationError("swap directory must not be empty")
	// ErrInvalidSwapID ...
	ErrInvalidSwapID = domain.NewValidationError("swap id is not valid")
	// ErrMalformedSwapSlate ...
	ErrMalformedSwapSlate = domain.NewValidationError("swap slate is malformed")
	// ErrInvalidNetwork ...
	ErrInvalidNetwork = domain.NewValidationError("network must be one of mainnet, testnet, regtest")
	// ErrSwapPrivateMissing is returned by transitions on a swap this store
	// only holds the public half of.
	ErrSwapPrivateMissing = domain.NewPreconditionError("swap has no private half in this store")
)

// withOp tags errors coming from collaborators with the running operation.
// Typed errors are returned as they are.
func withOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.WrapCollaborator(op, err)
}
