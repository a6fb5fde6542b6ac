package domain

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// MaxParticipants is the number of parties taking part to the base
	// negotiation protocol.
	MaxParticipants = 2
	// PlainKernel is the only kernel feature produced by the negotiator.
	PlainKernel uint8 = 0
)

// SlateState tracks the round a slate is at. Standard* states belong to
// the sender-initiated track, Invoice* ones to the recipient-initiated track.
type SlateState int

const (
	SlateStateUnknown SlateState = iota
	SlateStandard1
	SlateStandard2
	SlateStandard3
	SlateInvoice1
	SlateInvoice2
	SlateInvoice3
	SlateCancelled
)

var slateStateCodes = map[SlateState]string{
	SlateStateUnknown: "NA",
	SlateStandard1:    "S1",
	SlateStandard2:    "S2",
	SlateStandard3:    "S3",
	SlateInvoice1:     "I1",
	SlateInvoice2:     "I2",
	SlateInvoice3:     "I3",
	SlateCancelled:    "CA",
}

func (s SlateState) String() string {
	if code, ok := slateStateCodes[s]; ok {
		return code
	}
	return slateStateCodes[SlateStateUnknown]
}

// ParseSlateState ...
func ParseSlateState(code string) (SlateState, error) {
	for state, c := range slateStateCodes {
		if c == code && state != SlateStateUnknown {
			return state, nil
		}
	}
	return SlateStateUnknown, NewValidationError(
		fmt.Sprintf("unknown slate state %q", code),
	)
}

func (s SlateState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SlateState) UnmarshalText(text []byte) error {
	state, err := ParseSlateState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// IsFinal returns whether the slate is fully signed.
func (s SlateState) IsFinal() bool {
	return s == SlateStandard3 || s == SlateInvoice3
}

// IsInvoice ...
func (s SlateState) IsInvoice() bool {
	return s == SlateInvoice1 || s == SlateInvoice2 || s == SlateInvoice3
}

func (s SlateState) next() (SlateState, bool) {
	switch s {
	case SlateStandard1:
		return SlateStandard2, true
	case SlateStandard2:
		return SlateStandard3, true
	case SlateInvoice1:
		return SlateInvoice2, true
	case SlateInvoice2:
		return SlateInvoice3, true
	default:
		return s, false
	}
}

// ParticipantData is the public contribution of one party to a slate.
// Keys are hex encoded compressed points, the partial signature is the hex
// encoded scalar.
type ParticipantData struct {
	IsSender          bool   `json:"is_sender"`
	PublicBlindExcess string `json:"xs"`
	PublicNonce       string `json:"nonce"`
	PartialSig        string `json:"part,omitempty"`
}

// HasSigned ...
func (p ParticipantData) HasSigned() bool {
	return len(p.PartialSig) > 0
}

// TxKernel ...
type TxKernel struct {
	Features  uint8  `json:"features"`
	Fee       uint64 `json:"fee"`
	Excess    string `json:"excess"`
	ExcessSig string `json:"excess_sig"`
}

// Transaction is the body being assembled: hex commitments of inputs and
// outputs plus the kernels once finalized.
type Transaction struct {
	Inputs  []string   `json:"inputs,omitempty"`
	Outputs []string   `json:"outputs,omitempty"`
	Kernels []TxKernel `json:"kernels,omitempty"`
}

// Fee returns the sum of the fees declared by the kernels.
func (t Transaction) Fee() uint64 {
	var fee uint64
	for _, k := range t.Kernels {
		fee += k.Fee
	}
	return fee
}

// SlatePaymentProof is the proof request carried by a slate and, after the
// receive round, the recipient signature over it.
type SlatePaymentProof struct {
	SenderAddress     string `json:"saddr"`
	ReceiverAddress   string `json:"raddr"`
	ReceiverSignature string `json:"rsig,omitempty"`
}

// Slate is the transaction in progress exchanged by the two parties.
type Slate struct {
	ID              uuid.UUID          `json:"id"`
	Amount          uint64             `json:"amt"`
	Fee             uint64             `json:"fee"`
	State           SlateState         `json:"sta"`
	TTLCutoffHeight uint64             `json:"ttl,omitempty"`
	Participants    []ParticipantData  `json:"sigs"`
	PaymentProof    *SlatePaymentProof `json:"proof,omitempty"`
	Tx              Transaction        `json:"tx"`
}

// NewSendSlate returns a slate for the sender-initiated track.
func NewSendSlate(amount, fee, ttlCutoffHeight uint64) (*Slate, error) {
	return newSlate(amount, fee, ttlCutoffHeight, SlateStandard1)
}

// NewInvoiceSlate returns a slate for the recipient-initiated track.
func NewInvoiceSlate(amount, fee, ttlCutoffHeight uint64) (*Slate, error) {
	return newSlate(amount, fee, ttlCutoffHeight, SlateInvoice1)
}

func newSlate(amount, fee, ttl uint64, state SlateState) (*Slate, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	return &Slate{
		ID:              uuid.New(),
		Amount:          amount,
		Fee:             fee,
		State:           state,
		TTLCutoffHeight: ttl,
		Participants:    make([]ParticipantData, 0, MaxParticipants),
	}, nil
}

// ExpectState returns an error if the slate is not in one of the given
// states.
func (s *Slate) ExpectState(states ...SlateState) error {
	for _, st := range states {
		if s.State == st {
			return nil
		}
	}
	if s.State == SlateCancelled {
		return ErrSlateAlreadyCancelled
	}
	return ErrSlateStateTransition
}

// AddParticipant appends the contribution of a party.
func (s *Slate) AddParticipant(p ParticipantData) error {
	if len(s.Participants) >= MaxParticipants {
		return ErrTooManyParticipants
	}
	for _, pp := range s.Participants {
		if pp.PublicBlindExcess == p.PublicBlindExcess {
			return ErrDuplicateParticipant
		}
	}
	s.Participants = append(s.Participants, p)
	return nil
}

// Participant returns the contribution identified by the given public excess.
func (s *Slate) Participant(publicExcess string) (*ParticipantData, bool) {
	for i := range s.Participants {
		if s.Participants[i].PublicBlindExcess == publicExcess {
			return &s.Participants[i], true
		}
	}
	return nil, false
}

// Counterparty returns the contribution not matching the given public excess.
func (s *Slate) Counterparty(publicExcess string) (*ParticipantData, bool) {
	for i := range s.Participants {
		if s.Participants[i].PublicBlindExcess != publicExcess {
			return &s.Participants[i], true
		}
	}
	return nil, false
}

// PublicExcesses ...
func (s *Slate) PublicExcesses() []string {
	keys := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		keys = append(keys, p.PublicBlindExcess)
	}
	return keys
}

// PublicNonces ...
func (s *Slate) PublicNonces() []string {
	keys := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		keys = append(keys, p.PublicNonce)
	}
	return keys
}

// PartialSignatures ...
func (s *Slate) PartialSignatures() []string {
	sigs := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.HasSigned() {
			sigs = append(sigs, p.PartialSig)
		}
	}
	return sigs
}

// Advance moves the slate exactly one round forward.
func (s *Slate) Advance() error {
	if s.State == SlateCancelled {
		return ErrSlateAlreadyCancelled
	}
	if s.State.IsFinal() {
		return ErrSlateAlreadyFinalized
	}
	next, ok := s.State.next()
	if !ok {
		return ErrSlateStateTransition
	}
	s.State = next
	return nil
}

// Finalize attaches the aggregated kernel and moves the slate to its last
// round.
func (s *Slate) Finalize(kernel TxKernel) error {
	if err := s.ExpectState(SlateStandard2, SlateInvoice2); err != nil {
		return err
	}
	if len(kernel.Excess) <= 0 || len(kernel.ExcessSig) <= 0 {
		return NewValidationError("kernel must carry excess and signature")
	}
	s.Tx.Kernels = []TxKernel{kernel}
	return s.Advance()
}

// Cancel moves a non final slate to the cancelled side state.
func (s *Slate) Cancel() error {
	if s.State == SlateCancelled {
		return ErrSlateAlreadyCancelled
	}
	if s.State.IsFinal() {
		return ErrSlateAlreadyFinalized
	}
	s.State = SlateCancelled
	return nil
}

// SameTerms returns whether the other slate refers to the same negotiation.
func (s *Slate) SameTerms(other *Slate) bool {
	return s.ID == other.ID && s.Amount == other.Amount && s.Fee == other.Fee
}

// Kernel returns the finalized kernel, if any.
func (s *Slate) Kernel() (TxKernel, bool) {
	if len(s.Tx.Kernels) <= 0 {
		return TxKernel{}, false
	}
	return s.Tx.Kernels[0], true
}
