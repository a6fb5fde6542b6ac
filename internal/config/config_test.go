package config_test

import (
	"path/filepath"
	"testing"

	"github.com/mwswap/mwswapd/internal/config"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	t.Run("defaults", testDefaults())
	t.Run("overrides", testOverrides())
	t.Run("invalid", testInvalidConfig())
}

func testDefaults() func(*testing.T) {
	return func(t *testing.T) {
		datadir := t.TempDir()
		t.Setenv("MWSWAP_DATADIR", datadir)

		require.NoError(t, config.InitConfig())

		require.Equal(t, datadir, config.GetDatadir())
		require.DirExists(t, filepath.Join(datadir, config.WalletLocation))
		require.Equal(t, "grin", config.GetSlatepackHRP())
		require.Equal(t, "mainnet", config.GetBTCNetwork())

		cfg := config.GetWalletConfig()
		require.Equal(t, "https://grincoin.org", cfg.NodeURL)
		require.Equal(t, uint64(10), cfg.MinConfirmations)
		require.Equal(t, uint64(500000), cfg.BaseFee)
		require.Equal(t, 500, cfg.MaxOutputs)
		require.Equal(t, 1, cfg.ChangeOutputs)

		_, _, ok := config.GetSwapPeer()
		require.False(t, ok)
	}
}

func testOverrides() func(*testing.T) {
	return func(t *testing.T) {
		datadir := t.TempDir()
		t.Setenv("MWSWAP_DATADIR", datadir)
		t.Setenv("MWSWAP_NETWORK", "testnet")
		t.Setenv("MWSWAP_NODE_URL", "http://127.0.0.1:13413")
		t.Setenv("MWSWAP_MIN_CONFIRMATIONS", "1")
		t.Setenv("MWSWAP_SWAP_PEER_HOST", "peer.example.org")
		t.Setenv("MWSWAP_SWAP_PEER_PORT", "3421")
		t.Setenv("MWSWAP_ENABLE_METRICS", "true")

		require.NoError(t, config.InitConfig())

		require.Equal(t, "tgrin", config.GetSlatepackHRP())
		require.Equal(t, "testnet", config.GetBTCNetwork())
		require.Equal(t, uint64(1), config.GetWalletConfig().MinConfirmations)
		require.Equal(t, "http://127.0.0.1:13413", config.GetWalletConfig().NodeURL)
		require.DirExists(t, filepath.Join(datadir, config.ProfilerLocation))

		host, port, ok := config.GetSwapPeer()
		require.True(t, ok)
		require.Equal(t, "peer.example.org", host)
		require.Equal(t, 3421, port)
	}
}

func testInvalidConfig() func(*testing.T) {
	return func(t *testing.T) {
		tests := []struct {
			name string
			env  map[string]string
		}{
			{"network", map[string]string{"MWSWAP_NETWORK": "floonet"}},
			{"node url", map[string]string{"MWSWAP_NODE_URL": "ftp://node"}},
			{"log level", map[string]string{"MWSWAP_LOG_LEVEL": "9"}},
			{"base fee", map[string]string{"MWSWAP_BASE_FEE": "0"}},
			{"max outputs", map[string]string{"MWSWAP_MAX_OUTPUTS": "many"}},
			{"peer host", map[string]string{"MWSWAP_SWAP_PEER_HOST": "not a host"}},
			{"peer port", map[string]string{
				"MWSWAP_SWAP_PEER_HOST": "127.0.0.1", "MWSWAP_SWAP_PEER_PORT": "70000",
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("MWSWAP_DATADIR", t.TempDir())
				for k, v := range tt.env {
					t.Setenv(k, v)
				}
				require.Error(t, config.InitConfig())
			})
		}
	}
}

func TestInitLogger(t *testing.T) {
	datadir := t.TempDir()
	t.Setenv("MWSWAP_DATADIR", datadir)
	t.Setenv("MWSWAP_LOG_FILE", "mwswapd.log")
	require.NoError(t, config.InitConfig())

	closer := config.InitLogger()
	require.NoError(t, closer.Close())

	t.Setenv("MWSWAP_LOG_FILE", "")
	require.NoError(t, config.InitConfig())
	require.NoError(t, config.InitLogger().Close())
}
