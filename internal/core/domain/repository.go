package domain

import (
	"context"
)

// SlateContext holds the secrets an initiator needs to sign the slate once
// the counterparty replied. Secrets are stored masked.
type SlateContext struct {
	SlateID      string
	AccountLabel string
	SecretExcess string
	SecretNonce  string
	PublicExcess string
}

// OutputRepository ...
type OutputRepository interface {
	AddOutputs(ctx context.Context, outputs []Output) error
	GetOutput(ctx context.Context, commit string) (*Output, error)
	GetAllOutputs(ctx context.Context) ([]Output, error)
	GetUnspentOutputsForAccount(
		ctx context.Context, account string,
	) ([]Output, error)
	GetOutputsLockedBy(ctx context.Context, slateID string) ([]Output, error)
	GetOutputsForTxLog(ctx context.Context, txLogID uint64) ([]Output, error)
	UpdateOutput(
		ctx context.Context, commit string,
		updateFn func(o *Output) (*Output, error),
	) error
	LockOutputs(ctx context.Context, commits []string, slateID string) error
	UnlockOutputs(ctx context.Context, slateID string) (int, error)
	DeleteOutput(ctx context.Context, commit string) error
}

// TxLogRepository ...
type TxLogRepository interface {
	AddEntry(ctx context.Context, entry *TxLogEntry) (uint64, error)
	GetEntry(ctx context.Context, id uint64) (*TxLogEntry, error)
	GetEntryBySlateID(ctx context.Context, slateID string) (*TxLogEntry, error)
	GetAllEntries(ctx context.Context) ([]TxLogEntry, error)
	UpdateEntry(
		ctx context.Context, id uint64,
		updateFn func(e *TxLogEntry) (*TxLogEntry, error),
	) error
}

// AccountRepository ...
type AccountRepository interface {
	AddAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, label string) (*Account, error)
	GetAllAccounts(ctx context.Context) ([]Account, error)
	UpdateAccount(
		ctx context.Context, label string,
		updateFn func(a *Account) (*Account, error),
	) error
	GetActiveAccount(ctx context.Context) (string, error)
	SetActiveAccount(ctx context.Context, label string) error
}

// SlateRepository stores the last known copy of every slate the wallet took
// part in, together with the secret context of the initiator.
type SlateRepository interface {
	SaveSlate(ctx context.Context, slate *Slate) error
	GetSlate(ctx context.Context, slateID string) (*Slate, error)
	SaveContext(ctx context.Context, sctx *SlateContext) error
	GetContext(ctx context.Context, slateID string) (*SlateContext, error)
	DeleteContext(ctx context.Context, slateID string) error
}
