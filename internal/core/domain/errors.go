package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so that callers can tell apart bad input,
// a misuse of the protocol, a failing collaborator and a tampered payload.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindPrecondition
	KindCollaborator
	KindIntegrity
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindCollaborator:
		return "collaborator"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every core operation.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %s", msg, e.Err)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// NewValidationError ...
func NewValidationError(msg string) *Error {
	return newError(KindValidation, msg)
}

// NewPreconditionError ...
func NewPreconditionError(msg string) *Error {
	return newError(KindPrecondition, msg)
}

// NewIntegrityError ...
func NewIntegrityError(msg string) *Error {
	return newError(KindIntegrity, msg)
}

// WrapCollaborator tags an error coming from the crypto library, the node,
// the keychain provider, the codec or a store with the operation that was
// running. Errors already carrying a kind are returned untouched.
func WrapCollaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindCollaborator, Op: op, Err: err}
}

// KindOf returns the kind of the given error or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind ...
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var (
	// ErrZeroAmount ...
	ErrZeroAmount = NewValidationError("amount must be greater than zero")
	// ErrEmptyPassphrase ...
	ErrEmptyPassphrase = NewValidationError("passphrase must not be empty")
	// ErrInvalidAddress ...
	ErrInvalidAddress = NewValidationError("address is not valid")
	// ErrInvalidNodeURL ...
	ErrInvalidNodeURL = NewValidationError("node url must start with http:// or https://")
	// ErrEmptyAccountLabel ...
	ErrEmptyAccountLabel = NewValidationError("account label must not be empty")
	// ErrInvalidCurrency ...
	ErrInvalidCurrency = NewValidationError("currency is not supported")
	// ErrSameCurrency ...
	ErrSameCurrency = NewValidationError("swap currencies must differ")
	// ErrInvalidSwapTimeout ...
	ErrInvalidSwapTimeout = NewValidationError("swap timeout must be greater than zero")
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = NewValidationError("mnemonic is not valid")

	// ErrWalletNotOpen ...
	ErrWalletNotOpen = NewPreconditionError("wallet is not open")
	// ErrWalletAlreadyOpen ...
	ErrWalletAlreadyOpen = NewPreconditionError("wallet is already open")
	// ErrInsufficientFunds ...
	ErrInsufficientFunds = NewPreconditionError("not enough spendable funds")
	// ErrSlateStateTransition is returned when a slate does not sit exactly
	// one step behind the round being applied.
	ErrSlateStateTransition = NewPreconditionError("slate is not in the expected state")
	// ErrSlateAlreadyProcessed ...
	ErrSlateAlreadyProcessed = NewPreconditionError("slate has already been processed")
	// ErrSlateAlreadyFinalized ...
	ErrSlateAlreadyFinalized = NewPreconditionError("slate is already finalized")
	// ErrSlateAlreadyCancelled ...
	ErrSlateAlreadyCancelled = NewPreconditionError("slate is already cancelled")
	// ErrTooManyParticipants ...
	ErrTooManyParticipants = NewPreconditionError("slate already has two participants")
	// ErrDuplicateParticipant ...
	ErrDuplicateParticipant = NewPreconditionError("participant already added to slate")
	// ErrTxNotFound ...
	ErrTxNotFound = NewPreconditionError("transaction not found")
	// ErrTxAlreadyCancelled ...
	ErrTxAlreadyCancelled = NewPreconditionError("transaction is already cancelled")
	// ErrTxAlreadyConfirmed ...
	ErrTxAlreadyConfirmed = NewPreconditionError("transaction is already confirmed")
	// ErrTxNotFinalized ...
	ErrTxNotFinalized = NewPreconditionError("transaction is not finalized")
	// ErrTxNotConfirmed ...
	ErrTxNotConfirmed = NewPreconditionError("transaction is not confirmed")
	// ErrOutputNotSpendable ...
	ErrOutputNotSpendable = NewPreconditionError("output is not spendable")
	// ErrOutputNotLocked ...
	ErrOutputNotLocked = NewPreconditionError("output is not locked")
	// ErrOutputNotFound ...
	ErrOutputNotFound = NewPreconditionError("output not found")
	// ErrSlateNotFound ...
	ErrSlateNotFound = NewPreconditionError("slate not found")
	// ErrAccountNotFound ...
	ErrAccountNotFound = NewPreconditionError("account not found")
	// ErrAccountAlreadyExists ...
	ErrAccountAlreadyExists = NewPreconditionError("account already exists")
	// ErrPaymentProofNotFound ...
	ErrPaymentProofNotFound = NewPreconditionError("transaction has no payment proof")
	// ErrKernelNotFound ...
	ErrKernelNotFound = NewPreconditionError("kernel not found on chain")

	// ErrSwapNotFound ...
	ErrSwapNotFound = NewPreconditionError("swap not found")
	// ErrSwapAlreadyExists ...
	ErrSwapAlreadyExists = NewPreconditionError("swap already exists")
	// ErrSwapPhase is returned when a swap transition is attempted from the
	// wrong phase.
	ErrSwapPhase = NewPreconditionError("swap is not in the expected phase")
	// ErrSwapAlreadyExecuted ...
	ErrSwapAlreadyExecuted = NewPreconditionError("swap is already executed")
	// ErrSwapAlreadyCancelled ...
	ErrSwapAlreadyCancelled = NewPreconditionError("swap is already cancelled")
	// ErrSwapLegAlreadyLocked ...
	ErrSwapLegAlreadyLocked = NewPreconditionError("swap leg is already locked")
	// ErrSwapCounterpartyMissing ...
	ErrSwapCounterpartyMissing = NewPreconditionError("counterparty public data is missing")
	// ErrSwapSecretNotRevealed ...
	ErrSwapSecretNotRevealed = NewPreconditionError("swap secret has not been revealed yet")
	// ErrSwapTimeoutNotReached ...
	ErrSwapTimeoutNotReached = NewPreconditionError("swap lock has not expired yet")
	// ErrSwapRoleMismatch ...
	ErrSwapRoleMismatch = NewPreconditionError("operation not allowed for this swap role")
	// ErrStaleSwapHandle is returned by a coordinator built against settings
	// that have since been overridden.
	ErrStaleSwapHandle = NewPreconditionError("swap coordinator settings changed, obtain a new handle")

	// ErrSwapChecksumMismatch ...
	ErrSwapChecksumMismatch = NewIntegrityError("swap slate checksum mismatch")
	// ErrSwapTermsMismatch ...
	ErrSwapTermsMismatch = NewIntegrityError("swap slate terms do not match the local copy")
	// ErrSwapSecretMismatch ...
	ErrSwapSecretMismatch = NewIntegrityError("revealed secret does not match the swap hash")
	// ErrSwapPhaseRegression ...
	ErrSwapPhaseRegression = NewIntegrityError("swap slate phase cannot go backwards")
	// ErrSlateTermsMismatch ...
	ErrSlateTermsMismatch = NewIntegrityError("slate terms do not match the stored copy")
	// ErrInvalidPartialSignature ...
	ErrInvalidPartialSignature = NewIntegrityError("partial signature is not valid")
	// ErrInvalidPaymentProof ...
	ErrInvalidPaymentProof = NewIntegrityError("payment proof signature is not valid")
)
