package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mwswap/mwswapd/internal/config"
	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/ports"
	"github.com/mwswap/mwswapd/internal/infrastructure/codec/slatepack"
	"github.com/mwswap/mwswapd/internal/infrastructure/crypto/secp"
	"github.com/mwswap/mwswapd/internal/infrastructure/keychain"
	"github.com/mwswap/mwswapd/internal/infrastructure/metrics"
	nodehttp "github.com/mwswap/mwswapd/internal/infrastructure/node/http"
	dbbadger "github.com/mwswap/mwswapd/internal/infrastructure/storage/db/badger"
	swapfile "github.com/mwswap/mwswapd/internal/infrastructure/swapstore/file"
	"github.com/mwswap/mwswapd/pkg/stats"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory of wallet and swaps",
	}
	nodeURLFlag = &cli.StringFlag{
		Name:  "node-url",
		Usage: "url of the node foreign api",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "mainnet or testnet",
	}
	passwordFlag = &cli.StringFlag{
		Name:    "password",
		Usage:   "wallet passphrase",
		EnvVars: []string{"MWSWAP_PASSWORD"},
	}

	collector *metrics.Collector
	logCloser io.Closer
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "mwswap"
	app.Usage = "Mimblewimble wallet with slatepack negotiation and atomic swaps"
	app.Flags = []cli.Flag{datadirFlag, nodeURLFlag, networkFlag, passwordFlag}
	app.Before = setup
	app.After = teardown
	app.Commands = append(
		app.Commands,
		&walletCmd,
		&accountCmd,
		&addressCmd,
		&infoCmd,
		&sendCmd,
		&invoiceCmd,
		&receiveCmd,
		&finalizeCmd,
		&cancelCmd,
		&repostCmd,
		&inspectCmd,
		&txsCmd,
		&outputsCmd,
		&scanCmd,
		&watchCmd,
		&proofCmd,
		&swapCmd,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func setup(ctx *cli.Context) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	overrides := map[string]*cli.StringFlag{
		config.DatadirKey: datadirFlag,
		config.NodeURLKey: nodeURLFlag,
		config.NetworkKey: networkFlag,
	}
	for key, flag := range overrides {
		if ctx.IsSet(flag.Name) {
			config.Set(key, ctx.String(flag.Name))
		}
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logCloser = config.InitLogger()
	if config.GetBool(config.EnableMetricsKey) {
		collector = metrics.NewCollector()
	}
	return nil
}

func teardown(_ *cli.Context) error {
	if collector != nil {
		if err := stats.DumpMetrics(config.GetStatsPath(), collector.Gatherer()); err != nil {
			log.WithError(err).Warn("failed to dump metrics")
		}
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func metricsSink() ports.Metrics {
	if collector == nil {
		return metrics.NewNoop()
	}
	return collector
}

func newWalletService() (*application.WalletService, error) {
	nodeOpts := []nodehttp.Option{
		nodehttp.WithTimeout(config.GetNodeRequestTimeout()),
		nodehttp.WithRateLimit(config.GetInt(config.NodeRateLimitKey)),
		nodehttp.WithMetrics(metricsSink()),
	}
	if secret := config.GetString(config.NodeAPISecretKey); len(secret) > 0 {
		nodeOpts = append(nodeOpts, nodehttp.WithAPISecret(secret))
	}

	return application.NewWalletService(application.WalletServiceOpts{
		Config:          config.GetWalletConfig(),
		Crypto:          secp.NewService(),
		Codec:           slatepack.NewCodec(config.GetSlatepackHRP()),
		KeychainFactory: keychain.NewKeychain,
		RepoManagerFactory: func(dataDir string) (ports.RepoManager, error) {
			return dbbadger.NewRepoManager(dataDir, nil)
		},
		NodeClientFactory: nodehttp.NewFactory(nodeOpts...),
		Metrics:           metricsSink(),
	})
}

// openWallet returns the wallet service with the session open. The caller
// must close it.
func openWallet(ctx *cli.Context) (*application.WalletService, error) {
	password, err := getPassword(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := newWalletService()
	if err != nil {
		return nil, err
	}
	if err := svc.Open(ctx.Context, config.GetWalletDatadir(), password); err != nil {
		return nil, err
	}
	return svc, nil
}

// withWallet runs fn against an open wallet and closes it afterwards.
func withWallet(
	ctx *cli.Context,
	fn func(context.Context, *application.WalletService) error,
) error {
	svc, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(ctx.Context, svc)
}

func newSwapRuntime() (*application.SwapRuntime, error) {
	runtime, err := application.NewSwapRuntime(application.SwapRuntimeOpts{
		DataDir:       config.GetDatadir(),
		EnvDirectory:  config.GetString(config.SwapDirectoryKey),
		WalletDataDir: config.GetString(config.WalletDataKey),
		Network:       config.GetBTCNetwork(),
		Crypto:        secp.NewService(),
		StoreFactory: func(dir string) (ports.SwapSlateStore, error) {
			return swapfile.NewStore(dir)
		},
		Metrics: metricsSink(),
	})
	if err != nil {
		return nil, err
	}
	if host, port, ok := config.GetSwapPeer(); ok {
		if err := runtime.SetPeerEndpoint(host, port); err != nil {
			return nil, err
		}
	}
	return runtime, nil
}

func getPassword(ctx *cli.Context) (string, error) {
	password := ctx.String(passwordFlag.Name)
	if len(password) <= 0 {
		return "", fmt.Errorf("missing wallet passphrase, use --password or MWSWAP_PASSWORD")
	}
	return password, nil
}

func printRespJSON(resp interface{}) {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(buf))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[mwswap] %v\n", err)
	os.Exit(1)
}
