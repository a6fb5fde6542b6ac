package domain

import (
	"fmt"
	"strings"
)

const (
	// DefaultAccountLabel is the account every wallet is created with.
	DefaultAccountLabel = "default"
	// SwapAccountLabel is the account used by the atomic swap and invoice
	// flows, whatever the active account is.
	SwapAccountLabel = DefaultAccountLabel
)

// Account is a named derivation path of the keychain.
type Account struct {
	Label     string
	Index     uint32
	NextChild uint32
}

// NewAccount ...
func NewAccount(label string, index uint32) (*Account, error) {
	label = strings.TrimSpace(label)
	if len(label) <= 0 {
		return nil, ErrEmptyAccountLabel
	}
	return &Account{Label: label, Index: index}, nil
}

// Path returns the account root path.
func (a Account) Path() string {
	return fmt.Sprintf("m/%d/0", a.Index)
}

// NextKeyPath returns the path for a fresh output key and moves the
// account cursor forward.
func (a *Account) NextKeyPath() string {
	path := fmt.Sprintf("%s/%d", a.Path(), a.NextChild)
	a.NextChild++
	return path
}
