package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/require"
)

func TestParseDerivationPath(t *testing.T) {
	tests := []struct {
		input  string
		output DerivationPath
		err    error
	}{
		// account roots and output keys
		{"m/0/0", DerivationPath{0, 0}, nil},
		{"m/3/0/17", DerivationPath{3, 0, 17}, nil},
		{"m/0x03/0x00/0x11", DerivationPath{3, 0, 17}, nil},
		{"m/1'/0/2", DerivationPath{hdkeychain.HardenedKeyStart + 1, 0, 2}, nil},
		{"	m  /   1\n/\n   0	\n\n\t/ 2", DerivationPath{1, 0, 2}, nil},

		// relative paths
		{"0/0", DerivationPath{0, 0}, nil},

		// invalid paths
		{"", nil, ErrNullDerivationPath},
		{"m", nil, ErrMalformedDerivationPath},
		{"m/", nil, ErrMalformedDerivationPath},
		{"/0/0", nil, ErrMalformedDerivationPath},
		{"0", nil, ErrMalformedDerivationPath},
		{"m/4294967296", nil, nil},
		{"m/-1", nil, nil},
		{"m/abc/0", nil, ErrInvalidDerivationPath},
		{"m/0/0/1/2/3", nil, ErrDerivationPathTooDeep},
		{"m/2147483648'/0", nil, ErrInvalidDerivationPath},
	}
	for _, tt := range tests {
		path, err := ParseDerivationPath(tt.input)
		if tt.output == nil {
			require.Error(t, err, tt.input)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		} else {
			require.NoError(t, err, tt.input)
		}
		require.Equal(t, tt.output, path)
	}
}

func TestDerivationPathString(t *testing.T) {
	path, err := ParseDerivationPath("m/2/0")
	require.NoError(t, err)
	require.Equal(t, "m/2/0", path.String())

	child := path.Child(5)
	require.Equal(t, "m/2/0/5", child.String())
	require.Equal(t, "m/2/0", path.String())

	hardened := DerivationPath{hdkeychain.HardenedKeyStart + 7}
	require.Equal(t, "m/7'", hardened.String())
	require.Empty(t, DerivationPath{}.String())
}

func TestIdentifier(t *testing.T) {
	path, err := ParseDerivationPath("m/1/0/7")
	require.NoError(t, err)

	id := path.Identifier()
	require.Equal(t, "0300000001000000000000000700000000", id)

	parsed, err := ParseIdentifier(id)
	require.NoError(t, err)
	require.Equal(t, path, parsed)

	for _, bad := range []string{"", "zz", "00000000000000000000000000000000ff", "05" + id[2:]} {
		_, err := ParseIdentifier(bad)
		require.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}
