package application

import (
	"math"
	"math/big"
	"time"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultMinConfirmations = 10
	DefaultBaseFee          = 500000
	DefaultMaxOutputs       = 500
	DefaultChangeOutputs    = 1
	DefaultMnemonicWords    = 24

	// precisions of the smallest unit of each chain
	grinPrecision = 9
	btcPrecision  = 8
)

// WalletConfig holds the tunables of a wallet session.
type WalletConfig struct {
	NodeURL          string
	MinConfirmations uint64
	BaseFee          uint64
	MaxOutputs       int
	ChangeOutputs    int
}

func (c WalletConfig) withDefaults() WalletConfig {
	if c.MinConfirmations == 0 {
		c.MinConfirmations = DefaultMinConfirmations
	}
	if c.BaseFee == 0 {
		c.BaseFee = DefaultBaseFee
	}
	if c.MaxOutputs <= 0 {
		c.MaxOutputs = DefaultMaxOutputs
	}
	if c.ChangeOutputs <= 0 {
		c.ChangeOutputs = DefaultChangeOutputs
	}
	return c
}

// FeePolicy tunes a single send. Zero values fall back to the session
// config.
type FeePolicy struct {
	BaseFee          uint64
	MinConfirmations uint64
	MaxOutputs       int
	ChangeOutputs    int
	// TTLBlocks, if not zero, sets the slate TTL cutoff height to tip +
	// TTLBlocks.
	TTLBlocks uint64
	// SelectionStrategyIsUseAll spends every eligible output instead of the
	// smallest covering set.
	SelectionStrategyIsUseAll bool
}

func (p FeePolicy) resolve(cfg WalletConfig) FeePolicy {
	if p.BaseFee == 0 {
		p.BaseFee = cfg.BaseFee
	}
	if p.MinConfirmations == 0 {
		p.MinConfirmations = cfg.MinConfirmations
	}
	if p.MaxOutputs <= 0 {
		p.MaxOutputs = cfg.MaxOutputs
	}
	if p.ChangeOutputs <= 0 {
		p.ChangeOutputs = cfg.ChangeOutputs
	}
	return p
}

// Summary splits the wallet funds by availability.
type Summary struct {
	Total                uint64
	AwaitingConfirmation uint64
	Immature             uint64
	Locked               uint64
	Spendable            uint64
}

// WalletInfo ...
type WalletInfo struct {
	LastHeight    uint64
	ActiveAccount string
	Summary
}

// OutputInfo ...
type OutputInfo struct {
	Commit        string
	Value         uint64
	Status        string
	Height        uint64
	LockHeight    uint64
	IsCoinbase    bool
	Confirmations uint64
	Spendable     bool
	AccountLabel  string
	TxLogID       uint64
	LockedBy      string
	KeyID         string
}

// TxInfo ...
type TxInfo struct {
	ID              uint64
	SlateID         string
	AccountLabel    string
	Type            string
	Direction       domain.TxDirection
	Status          domain.TxStatus
	Confirmations   uint64
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
	HasPaymentProof bool
}

// SlateInspection is a read only view over a slatepack message.
type SlateInspection struct {
	ID              string
	State           string
	Amount          uint64
	Fee             uint64
	TTLCutoffHeight uint64
	NumParticipants int
	NumInputs       int
	NumOutputs      int
	KernelExcess    string
	IsInvoice       bool
	SenderAddress   string
}

// ScanResult counts what a reconciliation pass changed.
type ScanResult struct {
	Tip              uint64
	FromHeight       uint64
	OutputsConfirmed int
	OutputsSpent     int
	OutputsReverted  int
	EntriesConfirmed int
	EntriesReverted  int
	EntriesCancelled int
}

// PaymentProofExport is the portable form of a payment proof.
type PaymentProofExport struct {
	Amount           uint64 `json:"amount"`
	Excess           string `json:"excess"`
	RecipientAddress string `json:"recipient_address"`
	RecipientSig     string `json:"recipient_sig"`
	SenderAddress    string `json:"sender_address"`
	SenderSig        string `json:"sender_sig"`
}

// AccountInfo ...
type AccountInfo struct {
	Label  string
	Path   string
	Active bool
}

// SwapInfo is the caller view of a swap, built from both halves.
type SwapInfo struct {
	ID              uint64
	Role            string
	Phase           string
	FromCurrency    string
	ToCurrency      string
	FromAmount      uint64
	ToAmount        uint64
	TimeoutMinutes  uint64
	CreatedAt       time.Time
	SecretHash      string
	FromLockAddress string
	ToLockAddress   string
	HasPrivate      bool
	Checksum        string
}

// FormatAmount renders an amount expressed in the smallest unit of the
// given currency.
func FormatAmount(amount uint64, currency domain.Currency) string {
	return decimal.NewFromBigInt(
		new(big.Int).SetUint64(amount), -precision(currency),
	).String()
}

// ParseAmount converts a decimal amount into the smallest unit of the given
// currency.
func ParseAmount(amount string, currency domain.Currency) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, domain.NewValidationError("amount is not a valid number")
	}
	units := d.Shift(precision(currency))
	if !units.IsInteger() {
		return 0, domain.NewValidationError("amount has too many decimals")
	}
	if units.Sign() <= 0 {
		return 0, domain.ErrZeroAmount
	}
	if units.GreaterThan(maxAmount) {
		return 0, domain.NewValidationError("amount is too large")
	}
	return units.BigInt().Uint64(), nil
}

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

func precision(currency domain.Currency) int32 {
	if currency == domain.CurrencyBTC {
		return btcPrecision
	}
	return grinPrecision
}
