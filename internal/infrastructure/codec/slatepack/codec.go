package slatepack

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
)

const (
	header        = "BEGINSLATEPACK."
	footer        = "ENDSLATEPACK."
	wordLen       = 15
	version       = 1
	base58Version = 0x01

	MainnetHRP = "grin"
	TestnetHRP = "tgrin"
)

var (
	// ErrMalformedMessage ...
	ErrMalformedMessage = errors.New("slatepack message is malformed")
	// ErrUnsupportedVersion ...
	ErrUnsupportedVersion = errors.New("slatepack version not supported")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("slatepack address is not valid")
)

type envelope struct {
	Version    int           `json:"v"`
	Sender     string        `json:"sender,omitempty"`
	Recipients []string      `json:"recipients,omitempty"`
	Slate      *domain.Slate `json:"slate"`
}

type codec struct {
	hrp string
}

// NewCodec returns the armored slatepack codec for the network identified by
// the given bech32 prefix.
func NewCodec(hrp string) ports.SlateCodec {
	if len(hrp) <= 0 {
		hrp = MainnetHRP
	}
	return &codec{hrp}
}

func (c *codec) Encode(
	slate *domain.Slate, sender ed25519.PublicKey,
	recipients []ed25519.PublicKey,
) (string, error) {
	if slate == nil {
		return "", ErrMalformedMessage
	}
	env := envelope{Version: version, Slate: slate}
	if sender != nil {
		addr, err := c.FormatAddress(sender)
		if err != nil {
			return "", err
		}
		env.Sender = addr
	}
	for _, r := range recipients {
		addr, err := c.FormatAddress(r)
		if err != nil {
			return "", err
		}
		env.Recipients = append(env.Recipients, addr)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return armor(base58.CheckEncode(payload, base58Version)), nil
}

func (c *codec) Decode(message string) (*domain.Slate, ed25519.PublicKey, error) {
	body, err := dearmor(message)
	if err != nil {
		return nil, nil, err
	}
	payload, v, err := base58.CheckDecode(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}
	if v != base58Version {
		return nil, nil, ErrUnsupportedVersion
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}
	if env.Version != version {
		return nil, nil, ErrUnsupportedVersion
	}
	if env.Slate == nil {
		return nil, nil, ErrMalformedMessage
	}

	var sender ed25519.PublicKey
	if len(env.Sender) > 0 {
		if sender, err = c.ParseAddress(env.Sender); err != nil {
			return nil, nil, err
		}
	}
	return env.Slate, sender, nil
}

func (c *codec) ParseAddress(address string) (ed25519.PublicKey, error) {
	hrp, data, err := bech32.Decode(strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if hrp != c.hrp {
		return nil, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidAddress, hrp)
	}
	key, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, ErrInvalidAddress
	}
	return ed25519.PublicKey(key), nil
}

func (c *codec) FormatAddress(key ed25519.PublicKey) (string, error) {
	if len(key) != ed25519.PublicKeySize {
		return "", ErrInvalidAddress
	}
	data, err := bech32.ConvertBits(key, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(c.hrp, data)
}

func (c *codec) EncodeTransaction(tx domain.Transaction) ([]byte, error) {
	if len(tx.Kernels) <= 0 {
		return nil, fmt.Errorf("%w: transaction has no kernel", ErrMalformedMessage)
	}
	return json.Marshal(tx)
}

func armor(body string) string {
	words := make([]string, 0, len(body)/wordLen+1)
	for i := 0; i < len(body); i += wordLen {
		end := i + wordLen
		if end > len(body) {
			end = len(body)
		}
		words = append(words, body[i:end])
	}
	return fmt.Sprintf("%s %s. %s", header, strings.Join(words, " "), footer)
}

func dearmor(message string) (string, error) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, header) || !strings.HasSuffix(message, footer) {
		return "", ErrMalformedMessage
	}
	body := strings.TrimSuffix(strings.TrimPrefix(message, header), footer)
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ".")
	body = strings.Join(strings.Fields(body), "")
	if len(body) <= 0 {
		return "", ErrMalformedMessage
	}
	return body, nil
}
