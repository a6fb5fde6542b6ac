package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// MaxDepth is the deepest path a keychain identifier can express.
	MaxDepth = 4
	// IdentifierSize is depth byte followed by MaxDepth big endian indexes.
	IdentifierSize = 1 + 4*MaxDepth
)

// DerivationPath is the internal representation of a keychain path, either
// an account root m/<account>/0 or an output key m/<account>/0/<child>.
type DerivationPath []uint32

// ParseDerivationPath converts a path like m/1/0/7 to its binary form.
// The leading m is optional, hardened steps are marked with '.
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	if strings.TrimSpace(strPath) == "" {
		return nil, ErrNullDerivationPath
	}

	elems := strings.Split(strPath, "/")
	if len(elems) < 2 {
		return nil, ErrMalformedDerivationPath
	}
	if strings.TrimSpace(elems[0]) == "m" {
		elems = elems[1:]
	}
	if len(elems) > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrDerivationPathTooDeep, len(elems))
	}

	path := make(DerivationPath, 0, len(elems))
	for _, elem := range elems {
		step, err := parseStep(strings.TrimSpace(elem))
		if err != nil {
			return nil, err
		}
		path = append(path, step)
	}
	return path, nil
}

func parseStep(elem string) (uint32, error) {
	if elem == "" {
		return 0, ErrMalformedDerivationPath
	}

	var offset uint32
	if strings.HasSuffix(elem, "'") {
		offset = hdkeychain.HardenedKeyStart
		elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
	}

	index, err := strconv.ParseUint(elem, 0, 32)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, fmt.Errorf("%w: elem %s out of range", ErrInvalidDerivationPath, elem)
		}
		return 0, fmt.Errorf("%w: invalid elem '%s'", ErrInvalidDerivationPath, elem)
	}
	if offset > 0 && index >= uint64(hdkeychain.HardenedKeyStart) {
		return 0, fmt.Errorf("%w: elem %s out of hardened range", ErrInvalidDerivationPath, elem)
	}
	return offset + uint32(index), nil
}

// ParseIdentifier is the inverse of Identifier.
func ParseIdentifier(id string) (DerivationPath, error) {
	buf, err := hex.DecodeString(id)
	if err != nil || len(buf) != IdentifierSize {
		return nil, ErrInvalidIdentifier
	}
	depth := int(buf[0])
	if depth == 0 || depth > MaxDepth {
		return nil, ErrInvalidIdentifier
	}
	path := make(DerivationPath, depth)
	for i := range path {
		path[i] = binary.BigEndian.Uint32(buf[1+4*i:])
	}
	return path, nil
}

// Identifier returns the fixed size hex id of the path, as found in the
// key_id of a Mimblewimble output.
func (path DerivationPath) Identifier() string {
	buf := make([]byte, IdentifierSize)
	depth := len(path)
	if depth > MaxDepth {
		depth = MaxDepth
	}
	buf[0] = byte(depth)
	for i := 0; i < depth; i++ {
		binary.BigEndian.PutUint32(buf[1+4*i:], path[i])
	}
	return hex.EncodeToString(buf)
}

// Child returns a copy of the path extended with the given index.
func (path DerivationPath) Child(index uint32) DerivationPath {
	child := make(DerivationPath, len(path), len(path)+1)
	copy(child, path)
	return append(child, index)
}

// String converts a binary derivation path to its canonical representation
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("m")
	for _, step := range path {
		if step >= hdkeychain.HardenedKeyStart {
			fmt.Fprintf(&sb, "/%d'", step-hdkeychain.HardenedKeyStart)
			continue
		}
		fmt.Fprintf(&sb, "/%d", step)
	}
	return sb.String()
}
