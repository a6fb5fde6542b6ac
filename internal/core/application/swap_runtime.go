package application

import (
	_ "embed"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// walletSwapDir is the swap directory nested into the wallet data dir.
const walletSwapDir = "atomic_swap_txs"

//go:embed default_swap_settings.json
var defaultSwapSettings []byte

type swapSettings struct {
	Directory  string `json:"swap_directory"`
	PeerHost   string `json:"peer_host"`
	PeerPort   int    `json:"peer_port"`
	BTCNetwork string `json:"btc_network"`
}

// SwapStoreFactory opens the swap store rooted at the given directory.
type SwapStoreFactory func(dir string) (ports.SwapSlateStore, error)

// SwapRuntimeOpts ...
type SwapRuntimeOpts struct {
	// DataDir resolves the relative directories.
	DataDir string
	// EnvDirectory is the swap directory set through the environment.
	EnvDirectory string
	// WalletDataDir, if set, hosts the swaps in its atomic_swap_txs subdir.
	WalletDataDir string
	// Network overrides the btc network of the packaged settings.
	Network      string
	Crypto       ports.Crypto
	StoreFactory SwapStoreFactory
	Metrics      ports.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// SwapRuntime owns the swap settings and hands out coordinators bound to
// them. Every override bumps the settings generation: coordinators
// obtained before fail with ErrStaleSwapHandle.
type SwapRuntime struct {
	lock sync.Mutex

	opts     SwapRuntimeOpts
	defaults swapSettings
	schemes  map[domain.Currency]legScheme
	metrics  ports.Metrics
	now      func() time.Time

	dirOverride string
	peerHost    string
	peerPort    int
	generation  uint64
	current     *SwapCoordinator
}

// NewSwapRuntime ...
func NewSwapRuntime(opts SwapRuntimeOpts) (*SwapRuntime, error) {
	if opts.Crypto == nil {
		return nil, domain.NewValidationError("missing crypto service")
	}
	if opts.StoreFactory == nil {
		return nil, domain.NewValidationError("missing swap store factory")
	}

	var defaults swapSettings
	if err := json.Unmarshal(defaultSwapSettings, &defaults); err != nil {
		return nil, withOp("swap settings", err)
	}
	network := defaults.BTCNetwork
	if len(opts.Network) > 0 {
		network = opts.Network
	}
	params, err := networkParams(network)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &SwapRuntime{
		opts:     opts,
		defaults: defaults,
		schemes:  newSchemes(opts.Crypto, params),
		metrics:  metrics,
		now:      clock,
	}, nil
}

// Coordinator returns the coordinator bound to the current settings,
// building a new one if they changed since the last call.
func (r *SwapRuntime) Coordinator() (*SwapCoordinator, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.current != nil && r.current.generation == r.generation {
		return r.current, nil
	}

	dir := r.directory()
	store, err := r.opts.StoreFactory(dir)
	if err != nil {
		return nil, withOp("swap store", err)
	}
	host, port := r.peerEndpoint()

	r.current = &SwapCoordinator{
		runtime:    r,
		generation: r.generation,
		store:      store,
		crypto:     r.opts.Crypto,
		peerHost:   host,
		peerPort:   port,
	}
	log.WithFields(log.Fields{
		"dir": dir, "generation": r.generation,
	}).Debug("swap coordinator ready")
	return r.current, nil
}

// SetSlateDirectory overrides every other source of the swap directory.
func (r *SwapRuntime) SetSlateDirectory(dir string) error {
	dir = strings.TrimSpace(dir)
	if len(dir) <= 0 {
		return ErrEmptySwapDirectory
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.dirOverride = dir
	r.generation++
	log.WithField("dir", r.directory()).Info("swap directory updated")
	return nil
}

// SetPeerEndpoint overrides the packaged swap peer. The port can be given
// as a number or as a string.
func (r *SwapRuntime) SetPeerEndpoint(host string, port interface{}) error {
	host = strings.TrimSpace(host)
	if !govalidator.IsHost(host) {
		return ErrInvalidPeerHost
	}
	p, err := cast.ToIntE(port)
	if err != nil || p < 1 || p > 65535 {
		return ErrInvalidPeerPort
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.peerHost = host
	r.peerPort = p
	r.generation++
	log.WithFields(log.Fields{"host": host, "port": p}).Info("swap peer updated")
	return nil
}

// Directory returns the swap directory currently in effect.
func (r *SwapRuntime) Directory() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.directory()
}

// PeerEndpoint returns the swap peer currently in effect.
func (r *SwapRuntime) PeerEndpoint() (string, int) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.peerEndpoint()
}

// directory resolves override > environment > wallet data dir > packaged
// default.
func (r *SwapRuntime) directory() string {
	switch {
	case len(r.dirOverride) > 0:
		return r.resolve(r.dirOverride)
	case len(strings.TrimSpace(r.opts.EnvDirectory)) > 0:
		return r.resolve(strings.TrimSpace(r.opts.EnvDirectory))
	case len(strings.TrimSpace(r.opts.WalletDataDir)) > 0:
		return filepath.Join(r.resolve(strings.TrimSpace(r.opts.WalletDataDir)), walletSwapDir)
	default:
		return r.resolve(r.defaults.Directory)
	}
}

func (r *SwapRuntime) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(r.opts.DataDir, dir)
}

func (r *SwapRuntime) peerEndpoint() (string, int) {
	if len(r.peerHost) > 0 {
		return r.peerHost, r.peerPort
	}
	return r.defaults.PeerHost, r.defaults.PeerPort
}

func networkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, ErrInvalidNetwork
	}
}
