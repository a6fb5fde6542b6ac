package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/infrastructure/codec/slatepack"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DatadirKey is the local data directory hosting wallet, swaps and stats
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogFileKey, if set, makes the logs go to this rotated file instead of
	// stderr
	LogFileKey = "LOG_FILE"
	// NodeURLKey is the endpoint of the node foreign api
	NodeURLKey = "NODE_URL"
	// NodeAPISecretKey is the basic auth secret of the node api, if any
	NodeAPISecretKey = "NODE_API_SECRET"
	// NodeRequestTimeoutKey are the milliseconds to wait for node responses
	NodeRequestTimeoutKey = "NODE_REQUEST_TIMEOUT"
	// NodeRateLimitKey is the max number of node requests per second, 0 for
	// unlimited
	NodeRateLimitKey = "NODE_RATE_LIMIT"
	// NetworkKey is the network to use. Either "mainnet" or "testnet"
	NetworkKey = "NETWORK"
	// MinConfirmationsKey is the number of confirmations an output needs to
	// be spendable
	MinConfirmationsKey = "MIN_CONFIRMATIONS"
	// BaseFeeKey is the fee in nanogrin per weight unit
	BaseFeeKey = "BASE_FEE"
	// MaxOutputsKey caps the number of inputs selected for a send
	MaxOutputsKey = "MAX_OUTPUTS"
	// ChangeOutputsKey is the number of outputs the change is split into
	ChangeOutputsKey = "CHANGE_OUTPUTS"
	// SwapDirectoryKey overrides the directory of the swap slates
	SwapDirectoryKey = "SWAP_DIRECTORY"
	// WalletDataKey, if set, hosts the swap slates under its
	// atomic_swap_txs subdir
	WalletDataKey = "WALLET_DATA"
	// SwapPeerHostKey overrides the packaged swap peer host
	SwapPeerHostKey = "SWAP_PEER_HOST"
	// SwapPeerPortKey overrides the packaged swap peer port
	SwapPeerPortKey = "SWAP_PEER_PORT"
	// EnableMetricsKey dumps the collected metrics into the datadir on exit
	EnableMetricsKey = "ENABLE_METRICS"
	// StatsIntervalKey defines interval in seconds for logging memory stats
	// when metrics are enabled
	StatsIntervalKey = "STATS_INTERVAL"

	WalletLocation   = "wallet"
	ProfilerLocation = "stats"

	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("mwswapd", false)

// InitConfig loads the config from the MWSWAP_ prefixed environment,
// validates it and prepares the datadir.
func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("MWSWAP")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(NodeURLKey, "https://grincoin.org")
	vip.SetDefault(NodeRequestTimeoutKey, 15000)
	vip.SetDefault(NodeRateLimitKey, 0)
	vip.SetDefault(NetworkKey, NetworkMainnet)
	vip.SetDefault(MinConfirmationsKey, application.DefaultMinConfirmations)
	vip.SetDefault(BaseFeeKey, application.DefaultBaseFee)
	vip.SetDefault(MaxOutputsKey, application.DefaultMaxOutputs)
	vip.SetDefault(ChangeOutputsKey, application.DefaultChangeOutputs)
	vip.SetDefault(EnableMetricsKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

// Set overrides the value of the given key, ie. from a command line flag.
// The config must be validated again with Validate.
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// Validate checks the current values.
func Validate() error {
	return validate()
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetWalletDatadir is where the keychain and the wallet db live.
func GetWalletDatadir() string {
	return filepath.Join(GetDatadir(), WalletLocation)
}

// GetStatsPath is where metrics are dumped when enabled.
func GetStatsPath() string {
	return filepath.Join(GetDatadir(), ProfilerLocation, "metrics")
}

// GetNodeRequestTimeout ...
func GetNodeRequestTimeout() time.Duration {
	return time.Duration(GetInt(NodeRequestTimeoutKey)) * time.Millisecond
}

// GetStatsInterval ...
func GetStatsInterval() time.Duration {
	return time.Duration(GetInt(StatsIntervalKey)) * time.Second
}

// GetSlatepackHRP returns the human readable part of slatepack addresses
// for the configured network.
func GetSlatepackHRP() string {
	if GetString(NetworkKey) == NetworkTestnet {
		return slatepack.TestnetHRP
	}
	return slatepack.MainnetHRP
}

// GetBTCNetwork returns the bitcoin network paired with the configured one.
func GetBTCNetwork() string {
	if GetString(NetworkKey) == NetworkTestnet {
		return "testnet"
	}
	return "mainnet"
}

// GetWalletConfig ...
func GetWalletConfig() application.WalletConfig {
	return application.WalletConfig{
		NodeURL:          GetString(NodeURLKey),
		MinConfirmations: uint64(GetInt(MinConfirmationsKey)),
		BaseFee:          uint64(GetInt(BaseFeeKey)),
		MaxOutputs:       GetInt(MaxOutputsKey),
		ChangeOutputs:    GetInt(ChangeOutputsKey),
	}
}

// GetSwapPeer returns the swap peer endpoint overriding the packaged one,
// if configured.
func GetSwapPeer() (host string, port int, ok bool) {
	if !IsSet(SwapPeerHostKey) {
		return "", 0, false
	}
	port, _ = cast.ToIntE(vip.Get(SwapPeerPortKey))
	return GetString(SwapPeerHostKey), port, true
}

// InitLogger sets level and output of the global logger. Logs go to a
// rotated file if LOG_FILE is set.
func InitLogger() io.Closer {
	log.SetLevel(log.Level(GetInt(LogLevelKey)))

	logFile := GetString(LogFileKey)
	if len(logFile) <= 0 {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	if !filepath.IsAbs(logFile) {
		logFile = filepath.Join(GetDatadir(), logFile)
	}
	out := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50,
		MaxBackups: 3,
		Compress:   true,
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(out)
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	level := GetInt(LogLevelKey)
	if level < int(log.PanicLevel) || level > int(log.TraceLevel) {
		return fmt.Errorf("%s must be in range [%d, %d]",
			LogLevelKey, log.PanicLevel, log.TraceLevel)
	}

	nodeURL := GetString(NodeURLKey)
	if !govalidator.IsURL(nodeURL) ||
		!(strings.HasPrefix(nodeURL, "http://") || strings.HasPrefix(nodeURL, "https://")) {
		return fmt.Errorf("%s must be a valid http(s) url", NodeURLKey)
	}
	if GetInt(NodeRequestTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be greater than zero", NodeRequestTimeoutKey)
	}
	if GetInt(NodeRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", NodeRateLimitKey)
	}

	network := GetString(NetworkKey)
	if network != NetworkMainnet && network != NetworkTestnet {
		return fmt.Errorf(
			"network must be either '%s' or '%s'", NetworkMainnet, NetworkTestnet,
		)
	}

	for _, key := range []string{
		MinConfirmationsKey, BaseFeeKey, MaxOutputsKey, ChangeOutputsKey,
	} {
		if _, err := cast.ToUintE(vip.Get(key)); err != nil || GetInt(key) <= 0 {
			return fmt.Errorf("%s must be a positive number", key)
		}
	}

	if IsSet(SwapPeerHostKey) {
		if !govalidator.IsHost(GetString(SwapPeerHostKey)) {
			return fmt.Errorf("%s is not a valid host", SwapPeerHostKey)
		}
		port, err := cast.ToIntE(vip.Get(SwapPeerPortKey))
		if err != nil || !govalidator.IsPort(cast.ToString(port)) {
			return fmt.Errorf("%s is not a valid port", SwapPeerPortKey)
		}
	}

	if IsSet(SwapDirectoryKey) && len(strings.TrimSpace(GetString(SwapDirectoryKey))) <= 0 {
		return fmt.Errorf("%s must not be empty", SwapDirectoryKey)
	}

	return nil
}

func initDatadir() error {
	if err := makeDirectoryIfNotExists(GetWalletDatadir()); err != nil {
		return err
	}

	if GetBool(EnableMetricsKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(GetDatadir(), ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o700)
	}
	return nil
}
