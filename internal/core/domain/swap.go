package domain

import (
	"fmt"
	"strings"
	"time"
)

// Currency is the closed set of chains a swap leg can live on.
type Currency int

const (
	CurrencyUnknown Currency = iota
	CurrencyBTC
	CurrencyGRIN
)

var currencyCodes = map[Currency]string{
	CurrencyBTC:  "BTC",
	CurrencyGRIN: "GRIN",
}

// ParseCurrency ...
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for c, cc := range currencyCodes {
		if cc == code {
			return c, nil
		}
	}
	return CurrencyUnknown, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
}

func (c Currency) String() string {
	if code, ok := currencyCodes[c]; ok {
		return code
	}
	return "UNKNOWN"
}

func (c Currency) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	cur, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}
	*c = cur
	return nil
}

// SwapPhase ...
type SwapPhase int

const (
	SwapInit SwapPhase = iota
	SwapLocked
	SwapExecuted
	SwapCancelled
)

var swapPhaseNames = map[SwapPhase]string{
	SwapInit:      "Init",
	SwapLocked:    "Locked",
	SwapExecuted:  "Executed",
	SwapCancelled: "Cancelled",
}

func (p SwapPhase) String() string {
	if name, ok := swapPhaseNames[p]; ok {
		return name
	}
	return "Unknown"
}

func (p SwapPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *SwapPhase) UnmarshalText(text []byte) error {
	for phase, name := range swapPhaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return NewValidationError(fmt.Sprintf("unknown swap phase %q", text))
}

// IsTerminal ...
func (p SwapPhase) IsTerminal() bool {
	return p == SwapExecuted || p == SwapCancelled
}

// SwapRole ...
type SwapRole int

const (
	RoleInitiator SwapRole = iota
	RoleResponder
)

func (r SwapRole) String() string {
	if r == RoleResponder {
		return "responder"
	}
	return "initiator"
}

func (r SwapRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *SwapRole) UnmarshalText(text []byte) error {
	switch string(text) {
	case "initiator":
		*r = RoleInitiator
	case "responder":
		*r = RoleResponder
	default:
		return NewValidationError(fmt.Sprintf("unknown swap role %q", text))
	}
	return nil
}

// LegLock describes the collateral committed on one chain.
type LegLock struct {
	Currency  Currency  `json:"currency"`
	Amount    uint64    `json:"amount"`
	Address   string    `json:"address"`
	Script    string    `json:"script,omitempty"`
	LockTime  int64     `json:"lock_time"`
	Expiry    time.Time `json:"expiry"`
	RedeemKey string    `json:"redeem_key"`
	RefundKey string    `json:"refund_key"`
}

// SpendPlan is what a broadcaster needs to redeem or refund a leg.
type SpendPlan struct {
	Kind     string   `json:"kind"`
	Currency Currency `json:"currency"`
	Amount   uint64   `json:"amount"`
	Address  string   `json:"address"`
	Witness  []string `json:"witness,omitempty"`
	LockTime int64    `json:"lock_time,omitempty"`
}

const (
	SpendRedeem = "redeem"
	SpendRefund = "refund"
)

// SwapSlatePub is the half of a swap safe to hand to the counterparty.
type SwapSlatePub struct {
	ID              uint64    `json:"id"`
	FromCurrency    Currency  `json:"from_currency"`
	ToCurrency      Currency  `json:"to_currency"`
	FromAmount      uint64    `json:"from_amount"`
	ToAmount        uint64    `json:"to_amount"`
	TimeoutMinutes  uint64    `json:"timeout_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	Phase           SwapPhase `json:"phase"`
	SecretHash      string    `json:"secret_hash"`
	InitiatorPubKey string    `json:"initiator_pubkey"`
	ResponderPubKey string    `json:"responder_pubkey,omitempty"`
	FromLock        *LegLock  `json:"from_lock,omitempty"`
	ToLock          *LegLock  `json:"to_lock,omitempty"`
	RevealedSecret  string    `json:"revealed_secret,omitempty"`
}

// SwapSlatePrv never leaves the storage of the party that created it.
type SwapSlatePrv struct {
	ID          uint64     `json:"id"`
	Role        SwapRole   `json:"role"`
	Secret      string     `json:"secret,omitempty"`
	PrivateKey  string     `json:"private_key"`
	PubChecksum string     `json:"pub_checksum"`
	Redeem      *SpendPlan `json:"redeem,omitempty"`
	Refund      *SpendPlan `json:"refund,omitempty"`
}

// SwapSlate pairs the two halves of a swap.
type SwapSlate struct {
	Pub SwapSlatePub
	Prv *SwapSlatePrv
}

// NewSwapSlatePub validates the proposed terms.
func NewSwapSlatePub(
	id uint64, from, to Currency, fromAmount, toAmount, timeoutMinutes uint64,
	createdAt time.Time, secretHash, initiatorPubKey string,
) (*SwapSlatePub, error) {
	if from == CurrencyUnknown || to == CurrencyUnknown {
		return nil, ErrInvalidCurrency
	}
	if from == to {
		return nil, ErrSameCurrency
	}
	if fromAmount == 0 || toAmount == 0 {
		return nil, ErrZeroAmount
	}
	if timeoutMinutes == 0 {
		return nil, ErrInvalidSwapTimeout
	}
	return &SwapSlatePub{
		ID:              id,
		FromCurrency:    from,
		ToCurrency:      to,
		FromAmount:      fromAmount,
		ToAmount:        toAmount,
		TimeoutMinutes:  timeoutMinutes,
		CreatedAt:       createdAt.UTC(),
		Phase:           SwapInit,
		SecretHash:      secretHash,
		InitiatorPubKey: initiatorPubKey,
	}, nil
}

func (s *SwapSlatePub) timeout() time.Duration {
	return time.Duration(s.TimeoutMinutes) * time.Minute
}

// FromExpiry is when the initiator can take back its collateral. It is
// twice the timeout so the responder always has time to redeem after the
// secret is revealed.
func (s *SwapSlatePub) FromExpiry() time.Time {
	return s.CreatedAt.Add(2 * s.timeout())
}

// ToExpiry ...
func (s *SwapSlatePub) ToExpiry() time.Time {
	return s.CreatedAt.Add(s.timeout())
}

// Leg returns currency, amount and expiry of the leg locked by the role.
// The initiator locks on the from-chain, the responder on the to-chain.
func (s *SwapSlatePub) Leg(role SwapRole) (Currency, uint64, time.Time) {
	if role == RoleInitiator {
		return s.FromCurrency, s.FromAmount, s.FromExpiry()
	}
	return s.ToCurrency, s.ToAmount, s.ToExpiry()
}

// LegLock returns the lock of the leg owned by the role, nil if not locked.
func (s *SwapSlatePub) LegLock(role SwapRole) *LegLock {
	if role == RoleInitiator {
		return s.FromLock
	}
	return s.ToLock
}

// SetLock records the collateral committed by the role.
func (s *SwapSlatePub) SetLock(role SwapRole, lock *LegLock) error {
	if s.Phase != SwapInit {
		return ErrSwapPhase
	}
	if s.LegLock(role) != nil {
		return ErrSwapLegAlreadyLocked
	}
	if role == RoleInitiator {
		s.FromLock = lock
	} else {
		s.ToLock = lock
	}
	if s.FromLock != nil && s.ToLock != nil {
		s.Phase = SwapLocked
	}
	return nil
}

// CanExecute ...
func (s *SwapSlatePub) CanExecute() error {
	switch s.Phase {
	case SwapLocked, SwapExecuted:
		return nil
	case SwapCancelled:
		return ErrSwapAlreadyCancelled
	default:
		return ErrSwapPhase
	}
}

// Execute records the revealed secret and moves the swap to its terminal
// phase.
func (s *SwapSlatePub) Execute(secret string) error {
	if err := s.CanExecute(); err != nil {
		return err
	}
	s.RevealedSecret = secret
	s.Phase = SwapExecuted
	return nil
}

// Cancel ...
func (s *SwapSlatePub) Cancel() error {
	switch s.Phase {
	case SwapExecuted:
		return ErrSwapAlreadyExecuted
	case SwapCancelled:
		return ErrSwapAlreadyCancelled
	}
	s.Phase = SwapCancelled
	return nil
}

// SameTerms returns whether the immutable terms agree.
func (s *SwapSlatePub) SameTerms(other *SwapSlatePub) bool {
	return s.ID == other.ID &&
		s.FromCurrency == other.FromCurrency &&
		s.ToCurrency == other.ToCurrency &&
		s.FromAmount == other.FromAmount &&
		s.ToAmount == other.ToAmount &&
		s.TimeoutMinutes == other.TimeoutMinutes &&
		s.CreatedAt.Equal(other.CreatedAt) &&
		s.SecretHash == other.SecretHash &&
		s.InitiatorPubKey == other.InitiatorPubKey
}

// CanBeReplacedBy returns an error if the other copy would move the swap
// backwards or contradict data already known locally.
func (s *SwapSlatePub) CanBeReplacedBy(other *SwapSlatePub) error {
	if !s.SameTerms(other) {
		return ErrSwapTermsMismatch
	}
	if len(s.ResponderPubKey) > 0 && s.ResponderPubKey != other.ResponderPubKey {
		return ErrSwapTermsMismatch
	}
	if other.Phase < s.Phase && other.Phase != SwapCancelled {
		return ErrSwapPhaseRegression
	}
	if s.Phase == SwapCancelled && other.Phase != SwapCancelled {
		return ErrSwapPhaseRegression
	}
	if s.Phase == SwapExecuted && other.Phase == SwapCancelled {
		return ErrSwapAlreadyExecuted
	}
	if (s.FromLock != nil && other.FromLock == nil) ||
		(s.ToLock != nil && other.ToLock == nil) {
		return ErrSwapPhaseRegression
	}
	return nil
}
