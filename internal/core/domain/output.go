package domain

const (
	// CoinbaseMaturity is the number of blocks a coinbase output must wait
	// before it can be spent.
	CoinbaseMaturity = 1440
)

// OutputStatus ...
type OutputStatus int

const (
	OutputUnconfirmed OutputStatus = iota
	OutputUnspent
	OutputLocked
	OutputSpent
)

func (s OutputStatus) String() string {
	switch s {
	case OutputUnconfirmed:
		return "Unconfirmed"
	case OutputUnspent:
		return "Unspent"
	case OutputLocked:
		return "Locked"
	case OutputSpent:
		return "Spent"
	default:
		return "Unknown"
	}
}

// Output is a commitment owned by the wallet.
type Output struct {
	Commit       string
	Value        uint64
	Status       OutputStatus
	Height       uint64
	LockHeight   uint64
	IsCoinbase   bool
	KeyPath      string
	AccountLabel string
	// TxLogID is the ledger entry that created the output, 0 if none.
	TxLogID uint64
	// LockedBy is the id of the slate reserving the output.
	LockedBy string
}

// Confirmations returns how deep the output is buried given the chain tip.
// A tip lower than the output height means stale tip data and counts as
// unconfirmed.
func (o Output) Confirmations(tip uint64) uint64 {
	if o.Height == 0 || o.Height > tip {
		return 0
	}
	return tip - o.Height + 1
}

// IsMature ...
func (o Output) IsMature(tip uint64) bool {
	if !o.IsCoinbase {
		return true
	}
	return tip >= o.LockHeight
}

// IsSpendable returns whether the output can be selected as input of a new
// negotiation.
func (o Output) IsSpendable(tip, minConfirmations uint64) bool {
	if o.Status != OutputUnspent || o.IsLocked() {
		return false
	}
	if o.Confirmations(tip) < minConfirmations {
		return false
	}
	return o.IsMature(tip)
}

// IsLocked ...
func (o Output) IsLocked() bool {
	return o.Status == OutputLocked || len(o.LockedBy) > 0
}

// Lock reserves the output for the given slate.
func (o *Output) Lock(slateID string) error {
	if o.Status != OutputUnspent || o.IsLocked() {
		return ErrOutputNotSpendable
	}
	o.Status = OutputLocked
	o.LockedBy = slateID
	return nil
}

// Unlock releases the reservation.
func (o *Output) Unlock() error {
	if o.Status != OutputLocked {
		return ErrOutputNotLocked
	}
	o.Status = OutputUnspent
	o.LockedBy = ""
	return nil
}

// Confirm marks the output as found on chain at the given height.
func (o *Output) Confirm(height uint64) {
	o.Height = height
	if o.IsCoinbase {
		o.LockHeight = height + CoinbaseMaturity
	}
	if o.Status == OutputUnconfirmed {
		o.Status = OutputUnspent
	}
}

// Spend ...
func (o *Output) Spend() {
	o.Status = OutputSpent
	o.LockedBy = ""
}

// Revert moves a confirmed output back to unconfirmed after the chain
// dropped it.
func (o *Output) Revert() {
	o.Status = OutputUnconfirmed
	o.Height = 0
	o.LockHeight = 0
	o.LockedBy = ""
}
