package ports

import (
	"crypto/ed25519"

	"github.com/mwswap/mwswapd/internal/core/domain"
)

type SlateCodec interface {
	// Encode armors the slate. An empty recipients list produces a message
	// not addressed to anybody.
	Encode(
		slate *domain.Slate, sender ed25519.PublicKey,
		recipients []ed25519.PublicKey,
	) (string, error)
	// Decode returns the slate and the sender found in the envelope, if any.
	Decode(message string) (*domain.Slate, ed25519.PublicKey, error)
	ParseAddress(address string) (ed25519.PublicKey, error)
	FormatAddress(key ed25519.PublicKey) (string, error)
	EncodeTransaction(tx domain.Transaction) ([]byte, error)
}
