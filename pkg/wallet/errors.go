package wallet

import "errors"

var (
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("text to encrypt must not be null")
	// ErrNullCypherText ...
	ErrNullCypherText = errors.New("cypher to decrypt must not be null")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrNullSeed ...
	ErrNullSeed = errors.New("seed must not be null")

	// ErrInvalidPassphrase ...
	ErrInvalidPassphrase = errors.New("passphrase is not valid")
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidCypherText ...
	ErrInvalidCypherText = errors.New("cypher must be in base64 format")
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New("path must not start or end with a '/'")
	// ErrDerivationPathTooDeep ...
	ErrDerivationPathTooDeep = errors.New("derivation path must have at most 4 steps")
	// ErrInvalidIdentifier ...
	ErrInvalidIdentifier = errors.New("key identifier is not valid")
	// ErrInvalidStretchingCost ...
	ErrInvalidStretchingCost = errors.New("key stretching cost must be a power of two")
	// ErrUnsupportedEnvelope ...
	ErrUnsupportedEnvelope = errors.New("seed envelope version is not supported")
)
