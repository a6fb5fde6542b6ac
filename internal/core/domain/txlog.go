package domain

import (
	"time"
)

// TxLogEntryType ...
type TxLogEntryType int

const (
	TxSent TxLogEntryType = iota
	TxReceived
	TxSentCancelled
	TxReceivedCancelled
	TxReverted
)

func (t TxLogEntryType) String() string {
	switch t {
	case TxSent:
		return "TxSent"
	case TxReceived:
		return "TxReceived"
	case TxSentCancelled:
		return "TxSentCancelled"
	case TxReceivedCancelled:
		return "TxReceivedCancelled"
	case TxReverted:
		return "TxReverted"
	default:
		return "Unknown"
	}
}

// TxDirection ...
type TxDirection string

const (
	DirectionSent     TxDirection = "sent"
	DirectionReceived TxDirection = "received"
	DirectionReverted TxDirection = "reverted"
)

// TxStatus ...
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusCancelled TxStatus = "cancelled"
	StatusReverted  TxStatus = "reverted"
)

// PaymentProof is the proof stored with a ledger entry once the recipient
// signed it.
type PaymentProof struct {
	Amount           uint64
	Excess           string
	SenderAddress    string
	RecipientAddress string
	RecipientSig     string
	SenderSig        string
}

// TxLogEntry is the durable record of one negotiation.
type TxLogEntry struct {
	ID              uint64
	SlateID         string
	AccountLabel    string
	Type            TxLogEntryType
	RevertedFrom    TxLogEntryType
	Confirmed       bool
	Finalized       bool
	CreationTS      time.Time
	ConfirmationTS  time.Time
	AmountCredited  uint64
	AmountDebited   uint64
	Fee             uint64
	NumInputs       int
	NumOutputs      int
	KernelExcess    string
	TTLCutoffHeight uint64
	RevertedAfter   time.Duration
	PaymentProof    *PaymentProof
}

// Direction ...
func (e TxLogEntry) Direction() TxDirection {
	switch e.Type {
	case TxSent, TxSentCancelled:
		return DirectionSent
	case TxReverted:
		return DirectionReverted
	default:
		return DirectionReceived
	}
}

// Status ...
func (e TxLogEntry) Status() TxStatus {
	switch {
	case e.IsCancelled():
		return StatusCancelled
	case e.Type == TxReverted:
		return StatusReverted
	case e.Confirmed:
		return StatusConfirmed
	default:
		return StatusPending
	}
}

// IsCancelled ...
func (e TxLogEntry) IsCancelled() bool {
	return e.Type == TxSentCancelled || e.Type == TxReceivedCancelled
}

// IsExpired returns whether the TTL cutoff height has been passed by the
// given tip while the entry is still pending.
func (e TxLogEntry) IsExpired(tip uint64) bool {
	return e.TTLCutoffHeight > 0 && tip > e.TTLCutoffHeight &&
		e.Status() == StatusPending
}

// Cancel marks the entry as cancelled.
func (e *TxLogEntry) Cancel() error {
	if e.IsCancelled() {
		return ErrTxAlreadyCancelled
	}
	if e.Confirmed {
		return ErrTxAlreadyConfirmed
	}
	if e.Finalized {
		return ErrSlateAlreadyFinalized
	}
	switch e.Type {
	case TxSent:
		e.Type = TxSentCancelled
	case TxReceived:
		e.Type = TxReceivedCancelled
	default:
		return ErrTxAlreadyConfirmed
	}
	return nil
}

// Finalize records the kernel of the completed transaction.
func (e *TxLogEntry) Finalize(kernelExcess string, proof *PaymentProof) error {
	if e.IsCancelled() {
		return ErrTxAlreadyCancelled
	}
	if e.Finalized {
		return ErrSlateAlreadyFinalized
	}
	e.Finalized = true
	e.KernelExcess = kernelExcess
	if proof != nil {
		e.PaymentProof = proof
	}
	return nil
}

// Confirm marks the entry confirmed. A reverted entry seen again on chain
// gets its original type back.
func (e *TxLogEntry) Confirm(ts time.Time) {
	if e.Confirmed || e.IsCancelled() {
		return
	}
	if e.Type == TxReverted {
		e.Type = e.RevertedFrom
		e.RevertedAfter = 0
	}
	e.Confirmed = true
	e.ConfirmationTS = ts
}

// Revert marks a confirmed entry whose transaction was dropped by the chain.
func (e *TxLogEntry) Revert(now time.Time) error {
	if !e.Confirmed {
		return ErrTxNotConfirmed
	}
	e.RevertedFrom = e.Type
	e.Type = TxReverted
	e.Confirmed = false
	e.RevertedAfter = now.Sub(e.ConfirmationTS)
	return nil
}
