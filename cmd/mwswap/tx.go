package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mwswap/mwswapd/internal/config"
	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/mwswap/mwswapd/pkg/stats"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	messageFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "read the slatepack from this file instead of the first argument",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "write the resulting slatepack to this file",
	}
	txIDFlag = &cli.Uint64Flag{
		Name:     "id",
		Usage:    "transaction id",
		Required: true,
	}
	fluffFlag = &cli.BoolFlag{
		Name:  "fluff",
		Usage: "skip the stem phase when posting",
	}
)

var sendCmd = cli.Command{
	Name:  "send",
	Usage: "start a payment and print the slatepack for the recipient",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "amount in grin",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "slatepack address of the recipient, requests a payment proof",
		},
		&cli.Uint64Flag{
			Name:  "ttl",
			Usage: "number of blocks the slate is valid for",
		},
		&cli.IntFlag{
			Name:  "change-outputs",
			Usage: "number of outputs the change is split into",
		},
		&cli.BoolFlag{
			Name:  "use-all",
			Usage: "spend every eligible output",
		},
		outFlag,
	},
	Action: sendAction,
}

var invoiceCmd = cli.Command{
	Name:  "invoice",
	Usage: "request a payment and print the slatepack for the payer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "amount in grin",
			Required: true,
		},
		outFlag,
	},
	Action: invoiceAction,
}

var receiveCmd = cli.Command{
	Name:      "receive",
	Usage:     "sign a received payment or invoice and print the response",
	ArgsUsage: "[slatepack]",
	Flags:     []cli.Flag{messageFlag, outFlag},
	Action:    receiveAction,
}

var finalizeCmd = cli.Command{
	Name:      "finalize",
	Usage:     "finalize a slate and optionally post it",
	ArgsUsage: "[slatepack]",
	Flags: []cli.Flag{
		messageFlag,
		outFlag,
		&cli.BoolFlag{
			Name:  "no-post",
			Usage: "do not post the transaction to the node",
		},
		fluffFlag,
	},
	Action: finalizeAction,
}

var cancelCmd = cli.Command{
	Name:  "cancel",
	Usage: "cancel a transaction not finalized yet",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "id", Usage: "transaction id"},
		&cli.StringFlag{Name: "slate-id", Usage: "slate id"},
	},
	Action: cancelAction,
}

var repostCmd = cli.Command{
	Name:   "repost",
	Usage:  "post again a finalized transaction",
	Flags:  []cli.Flag{txIDFlag, fluffFlag},
	Action: repostAction,
}

var inspectCmd = cli.Command{
	Name:      "inspect",
	Usage:     "decode a slatepack without touching the wallet",
	ArgsUsage: "[slatepack]",
	Flags:     []cli.Flag{messageFlag},
	Action:    inspectAction,
}

var txsCmd = cli.Command{
	Name:  "txs",
	Usage: "list the transactions of the active account",
	Flags: []cli.Flag{
		refreshFlag,
		&cli.Uint64Flag{Name: "id", Usage: "show a single transaction"},
		&cli.BoolFlag{Name: "slatepack", Usage: "print the stored slatepack of --id"},
	},
	Action: txsAction,
}

var outputsCmd = cli.Command{
	Name:  "outputs",
	Usage: "list the outputs of the active account",
	Flags: []cli.Flag{
		refreshFlag,
		&cli.BoolFlag{Name: "spent", Usage: "include spent outputs"},
	},
	Action: outputsAction,
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "reconcile outputs and transactions with the chain",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "delete-unconfirmed",
			Usage: "cancel every transaction not finalized yet",
		},
		&cli.Uint64Flag{Name: "start-height", Usage: "rescan from this height"},
		&cli.Uint64Flag{Name: "backwards", Usage: "rescan this many blocks back from the tip"},
	},
	Action: scanAction,
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "keep the wallet in sync with the chain until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "time between two scans",
			Value: time.Minute,
		},
	},
	Action: watchAction,
}

var proofCmd = cli.Command{
	Name:  "proof",
	Usage: "export and verify payment proofs",
	Subcommands: []*cli.Command{
		{
			Name:  "export",
			Usage: "print the payment proof of a sent transaction",
			Flags: []cli.Flag{txIDFlag},
			Action: func(ctx *cli.Context) error {
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					proof, err := svc.PaymentProofs().PaymentProof(c, ctx.Uint64(txIDFlag.Name))
					if err != nil {
						return err
					}
					fmt.Println(proof)
					return nil
				})
			},
		},
		{
			Name:      "verify",
			Usage:     "verify a payment proof",
			ArgsUsage: "[proof]",
			Flags:     []cli.Flag{messageFlag},
			Action: func(ctx *cli.Context) error {
				payload, err := readMessage(ctx)
				if err != nil {
					return err
				}
				return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
					isSender, isRecipient, err := svc.PaymentProofs().VerifyPaymentProof(c, payload)
					if err != nil {
						return err
					}
					printRespJSON(map[string]bool{
						"valid":        true,
						"is_sender":    isSender,
						"is_recipient": isRecipient,
					})
					return nil
				})
			},
		},
	},
}

func sendAction(ctx *cli.Context) error {
	amount, err := application.ParseAmount(ctx.String("amount"), domain.CurrencyGRIN)
	if err != nil {
		return err
	}
	policy := application.FeePolicy{
		TTLBlocks:                 ctx.Uint64("ttl"),
		ChangeOutputs:             ctx.Int("change-outputs"),
		SelectionStrategyIsUseAll: ctx.Bool("use-all"),
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		message, err := svc.Negotiator().InitiateSend(c, ctx.String("to"), amount, policy)
		if err != nil {
			return err
		}
		return writeMessage(ctx, message)
	})
}

func invoiceAction(ctx *cli.Context) error {
	amount, err := application.ParseAmount(ctx.String("amount"), domain.CurrencyGRIN)
	if err != nil {
		return err
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		message, err := svc.Negotiator().InitiateInvoice(c, amount)
		if err != nil {
			return err
		}
		return writeMessage(ctx, message)
	})
}

func receiveAction(ctx *cli.Context) error {
	message, err := readMessage(ctx)
	if err != nil {
		return err
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		response, err := svc.Negotiator().Advance(c, message)
		if err != nil {
			return err
		}
		return writeMessage(ctx, response)
	})
}

func finalizeAction(ctx *cli.Context) error {
	message, err := readMessage(ctx)
	if err != nil {
		return err
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		final, err := svc.Negotiator().Finalize(
			c, message, !ctx.Bool("no-post"), ctx.Bool(fluffFlag.Name),
		)
		if err != nil {
			return err
		}
		if ctx.IsSet(outFlag.Name) {
			return writeMessage(ctx, final)
		}
		fmt.Println("transaction finalized")
		return nil
	})
}

func cancelAction(ctx *cli.Context) error {
	txID, slateID := ctx.Uint64("id"), ctx.String("slate-id")
	if txID == 0 && len(slateID) <= 0 {
		return fmt.Errorf("either --id or --slate-id is required")
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		if len(slateID) > 0 {
			if err := svc.Negotiator().CancelBySlate(c, slateID); err != nil {
				return err
			}
		} else if err := svc.Negotiator().Cancel(c, txID); err != nil {
			return err
		}
		fmt.Println("transaction cancelled")
		return nil
	})
}

func repostAction(ctx *cli.Context) error {
	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		if err := svc.Negotiator().Repost(
			c, ctx.Uint64(txIDFlag.Name), ctx.Bool(fluffFlag.Name),
		); err != nil {
			return err
		}
		fmt.Println("transaction posted")
		return nil
	})
}

func inspectAction(ctx *cli.Context) error {
	message, err := readMessage(ctx)
	if err != nil {
		return err
	}
	svc, err := newWalletService()
	if err != nil {
		return err
	}

	inspection, err := svc.Negotiator().Inspect(message)
	if err != nil {
		return err
	}
	printRespJSON(inspection)
	return nil
}

func txsAction(ctx *cli.Context) error {
	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		if id := ctx.Uint64("id"); id > 0 {
			if ctx.Bool("slatepack") {
				message, err := svc.Negotiator().TransactionSlatepack(c, id)
				if err != nil {
					return err
				}
				fmt.Println(message)
				return nil
			}
			tx, err := svc.Ledger().GetTransaction(c, id)
			if err != nil {
				return err
			}
			printRespJSON(tx)
			return nil
		}

		txs, err := svc.Ledger().ListTransactions(c, ctx.Bool(refreshFlag.Name))
		if err != nil {
			return err
		}
		printRespJSON(txs)
		return nil
	})
}

func outputsAction(ctx *cli.Context) error {
	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		outputs, err := svc.Outputs().ListOutputs(
			c, ctx.Bool("spent"), ctx.Bool(refreshFlag.Name),
		)
		if err != nil {
			return err
		}
		printRespJSON(outputs)
		return nil
	})
}

func scanAction(ctx *cli.Context) error {
	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		res, err := svc.Scan(
			c, ctx.Bool("delete-unconfirmed"),
			ctx.Uint64("start-height"), ctx.Uint64("backwards"),
		)
		if err != nil {
			return err
		}
		printRespJSON(res)
		return nil
	})
}

func watchAction(ctx *cli.Context) error {
	interval := ctx.Duration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	return withWallet(ctx, func(c context.Context, svc *application.WalletService) error {
		c, cancel := signal.NotifyContext(c, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if collector != nil {
			stats.EnableMemoryStatistics(
				c, config.GetStatsInterval(), collector.Gatherer(), config.GetStatsPath(),
			)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			res, err := svc.Scan(c, false, 0, 0)
			if err != nil {
				log.WithError(err).Warn("scan failed")
			} else {
				log.WithField("tip", res.Tip).Debug("wallet in sync")
			}

			select {
			case <-c.Done():
				log.Info("shutting down")
				return nil
			case <-ticker.C:
			}
		}
	})
}

func readMessage(ctx *cli.Context) (string, error) {
	if path := ctx.String(messageFlag.Name); len(path) > 0 {
		buf, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(buf)), nil
	}
	if ctx.Args().Len() <= 0 {
		return "", fmt.Errorf("missing message, pass it as argument or with --file")
	}
	return strings.Join(ctx.Args().Slice(), " "), nil
}

func writeMessage(ctx *cli.Context, message string) error {
	path := ctx.String(outFlag.Name)
	if len(path) <= 0 {
		fmt.Println(message)
		return nil
	}
	if err := os.WriteFile(path, []byte(message+"\n"), 0o600); err != nil {
		return err
	}
	fmt.Println("slatepack written to file", path)
	return nil
}
