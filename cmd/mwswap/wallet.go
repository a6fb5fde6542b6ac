package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/mwswap/mwswapd/internal/config"
	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
)

var refreshFlag = &cli.BoolFlag{
	Name:  "refresh",
	Usage: "reconcile with the node first",
}

var walletCmd = cli.Command{
	Name:  "wallet",
	Usage: "create, restore and back up the wallet",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create a new wallet and print its mnemonic",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "words",
					Usage: "number of mnemonic words",
					Value: application.DefaultMnemonicWords,
				},
			},
			Action: createWalletAction,
		},
		{
			Name:  "restore",
			Usage: "restore a wallet from its mnemonic",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "mnemonic",
					Usage:    "space separated mnemonic words",
					Required: true,
				},
			},
			Action: restoreWalletAction,
		},
		{
			Name:   "seed",
			Usage:  "print the mnemonic of the wallet",
			Action: seedAction,
		},
		{
			Name:  "node",
			Usage: "check the node the wallet talks to",
			Action: func(ctx *cli.Context) error {
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					tip, err := svc.NodeTip(c)
					if err != nil {
						return err
					}
					printRespJSON(map[string]interface{}{
						"url": svc.NodeURL(),
						"tip": tip,
					})
					return nil
				})
			},
		},
	},
}

var accountCmd = cli.Command{
	Name:  "account",
	Usage: "manage wallet accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list the accounts",
			Action: func(ctx *cli.Context) error {
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					accounts, err := svc.ListAccounts(c)
					if err != nil {
						return err
					}
					printRespJSON(accounts)
					return nil
				})
			},
		},
		{
			Name:      "create",
			Usage:     "add an account",
			ArgsUsage: "<label>",
			Action: func(ctx *cli.Context) error {
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					account, err := svc.CreateAccount(c, ctx.Args().First())
					if err != nil {
						return err
					}
					printRespJSON(account)
					return nil
				})
			},
		},
		{
			Name:      "use",
			Usage:     "make an account the active one",
			ArgsUsage: "<label>",
			Action: func(ctx *cli.Context) error {
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					if err := svc.SetActiveAccount(c, ctx.Args().First()); err != nil {
						return err
					}
					fmt.Println("active account:", ctx.Args().First())
					return nil
				})
			},
		},
	},
}

var addressCmd = cli.Command{
	Name:  "address",
	Usage: "print the slatepack address of the wallet",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "qr",
			Usage: "print the address as a qr code",
		},
		&cli.StringFlag{
			Name:  "qr-file",
			Usage: "write the address qr code to this png file",
		},
	},
	Action: addressAction,
}

var infoCmd = cli.Command{
	Name:   "info",
	Usage:  "show balance and active account",
	Flags:  []cli.Flag{refreshFlag},
	Action: infoAction,
}

func createWalletAction(ctx *cli.Context) error {
	password, err := getPassword(ctx)
	if err != nil {
		return err
	}
	svc, err := newWalletService()
	if err != nil {
		return err
	}

	mnemonic, err := svc.Create(
		ctx.Context, config.GetWalletDatadir(), password, ctx.Int("words"),
	)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("Write down the mnemonic, it is the only way to restore the wallet:")
	fmt.Println(strings.Join(mnemonic, " "))
	return nil
}

func restoreWalletAction(ctx *cli.Context) error {
	password, err := getPassword(ctx)
	if err != nil {
		return err
	}
	svc, err := newWalletService()
	if err != nil {
		return err
	}

	mnemonic := strings.Fields(ctx.String("mnemonic"))
	if err := svc.Restore(
		ctx.Context, config.GetWalletDatadir(), password, mnemonic,
	); err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("wallet restored, run 'scan' to find its outputs")
	return nil
}

func seedAction(ctx *cli.Context) error {
	password, err := getPassword(ctx)
	if err != nil {
		return err
	}
	svc, err := newWalletService()
	if err != nil {
		return err
	}

	mnemonic, err := svc.SeedPhrase(config.GetWalletDatadir(), password)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(mnemonic, " "))
	return nil
}

func addressAction(ctx *cli.Context) error {
	return withWallet(ctx, func(_ context.Context, svc *application.WalletService) error {
		address, err := svc.SlatepackAddress()
		if err != nil {
			return err
		}

		if ctx.Bool("qr") {
			qrterminal.Generate(address, qrterminal.L, os.Stdout)
		}
		if path := ctx.String("qr-file"); len(path) > 0 {
			if err := qrcode.WriteFile(address, qrcode.Medium, 512, path); err != nil {
				return err
			}
			fmt.Println("QRCode written to file", path)
		}
		fmt.Println(address)
		return nil
	})
}

func infoAction(ctx *cli.Context) error {
	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		info, err := svc.Info(c, ctx.Bool(refreshFlag.Name))
		if err != nil {
			return err
		}
		printRespJSON(map[string]interface{}{
			"last_height":           info.LastHeight,
			"active_account":        info.ActiveAccount,
			"total":                 application.FormatAmount(info.Total, domain.CurrencyGRIN),
			"awaiting_confirmation": application.FormatAmount(info.AwaitingConfirmation, domain.CurrencyGRIN),
			"immature":              application.FormatAmount(info.Immature, domain.CurrencyGRIN),
			"locked":                application.FormatAmount(info.Locked, domain.CurrencyGRIN),
			"spendable":             application.FormatAmount(info.Spendable, domain.CurrencyGRIN),
		})
		return nil
	})
}
