package main

import (
	"fmt"
	"os"

	"github.com/mwswap/mwswapd/internal/core/application"
	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var swapIDFlag = &cli.Uint64Flag{
	Name:     "id",
	Usage:    "swap id",
	Required: true,
}

var swapCmd = cli.Command{
	Name:  "swap",
	Usage: "coordinate atomic swaps",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "directory of the swap slates, overrides any other setting",
		},
		&cli.StringFlag{
			Name:  "peer-host",
			Usage: "host of the swap peer",
		},
		&cli.StringFlag{
			Name:  "peer-port",
			Usage: "port of the swap peer",
		},
	},
	Subcommands: []*cli.Command{
		{
			Name:  "init",
			Usage: "propose a new swap as initiator",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "currency given, BTC or GRIN", Required: true},
				&cli.StringFlag{Name: "to", Usage: "currency received, BTC or GRIN", Required: true},
				&cli.StringFlag{Name: "from-amount", Usage: "amount given", Required: true},
				&cli.StringFlag{Name: "to-amount", Usage: "amount received", Required: true},
				&cli.Uint64Flag{Name: "timeout", Usage: "timeout in minutes", Value: 60},
			},
			Action: swapInitAction,
		},
		swapIDCommand("accept", "join an imported swap as responder",
			(*application.SwapCoordinator).Accept),
		swapIDCommand("lock", "lock the local leg",
			(*application.SwapCoordinator).Lock),
		swapIDCommand("execute", "redeem the counterparty leg",
			(*application.SwapCoordinator).Execute),
		swapIDCommand("cancel", "cancel the swap, refunding the local leg if locked",
			(*application.SwapCoordinator).Cancel),
		swapIDCommand("read", "show a swap",
			(*application.SwapCoordinator).Read),
		{
			Name:  "list",
			Usage: "list every swap of the directory",
			Action: func(ctx *cli.Context) error {
				c, err := swapCoordinator(ctx)
				if err != nil {
					return err
				}
				swaps, err := c.List()
				if err != nil {
					return err
				}
				printRespJSON(swaps)
				return nil
			},
		},
		{
			Name:  "checksum",
			Usage: "print the checksum of the public half",
			Flags: []cli.Flag{swapIDFlag},
			Action: func(ctx *cli.Context) error {
				c, err := swapCoordinator(ctx)
				if err != nil {
					return err
				}
				checksum, err := c.Checksum(ctx.Uint64(swapIDFlag.Name))
				if err != nil {
					return err
				}
				fmt.Println(checksum)
				return nil
			},
		},
		{
			Name:  "export",
			Usage: "write the public half for the counterparty",
			Flags: []cli.Flag{
				swapIDFlag,
				&cli.StringFlag{Name: "out", Usage: "destination file", Required: true},
			},
			Action: swapExportAction,
		},
		{
			Name:  "import",
			Usage: "store the public half received from the counterparty",
			Flags: []cli.Flag{
				swapIDFlag,
				&cli.StringFlag{Name: "file", Usage: "public half file", Required: true},
				&cli.StringFlag{Name: "checksum", Usage: "checksum sent along", Required: true},
			},
			Action: swapImportAction,
		},
		{
			Name:  "delete",
			Usage: "remove both halves of a swap",
			Flags: []cli.Flag{swapIDFlag},
			Action: func(ctx *cli.Context) error {
				c, err := swapCoordinator(ctx)
				if err != nil {
					return err
				}
				if err := c.Delete(ctx.Uint64(swapIDFlag.Name)); err != nil {
					return err
				}
				fmt.Println("swap deleted")
				return nil
			},
		},
	},
}

func swapIDCommand(
	name, usage string,
	op func(*application.SwapCoordinator, uint64) (*application.SwapInfo, error),
) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{swapIDFlag},
		Action: func(ctx *cli.Context) error {
			c, err := swapCoordinator(ctx)
			if err != nil {
				return err
			}
			info, err := op(c, ctx.Uint64(swapIDFlag.Name))
			if err != nil {
				return err
			}
			printRespJSON(info)
			return nil
		},
	}
}

// swapCoordinator applies the overrides given to the swap command and
// returns the coordinator bound to them.
func swapCoordinator(ctx *cli.Context) (*application.SwapCoordinator, error) {
	runtime, err := newSwapRuntime()
	if err != nil {
		return nil, err
	}
	if dir := ctx.String("dir"); len(dir) > 0 {
		if err := runtime.SetSlateDirectory(dir); err != nil {
			return nil, err
		}
	}
	if host := ctx.String("peer-host"); len(host) > 0 {
		if err := runtime.SetPeerEndpoint(host, ctx.String("peer-port")); err != nil {
			return nil, err
		}
	}
	return runtime.Coordinator()
}

func swapInitAction(ctx *cli.Context) error {
	from, err := domain.ParseCurrency(ctx.String("from"))
	if err != nil {
		return err
	}
	to, err := domain.ParseCurrency(ctx.String("to"))
	if err != nil {
		return err
	}
	fromAmount, err := application.ParseAmount(ctx.String("from-amount"), from)
	if err != nil {
		return err
	}
	toAmount, err := application.ParseAmount(ctx.String("to-amount"), to)
	if err != nil {
		return err
	}

	c, err := swapCoordinator(ctx)
	if err != nil {
		return err
	}
	info, err := c.Init(from.String(), to.String(), fromAmount, toAmount, ctx.Uint64("timeout"))
	if err != nil {
		return err
	}
	printRespJSON(info)
	return nil
}

func swapExportAction(ctx *cli.Context) error {
	c, err := swapCoordinator(ctx)
	if err != nil {
		return err
	}
	payload, checksum, err := c.ExportPublic(ctx.Uint64(swapIDFlag.Name))
	if err != nil {
		return err
	}
	if err := os.WriteFile(ctx.String("out"), payload, 0o600); err != nil {
		return err
	}
	fmt.Println("swap written to file", ctx.String("out"))
	fmt.Println("checksum:", checksum)
	return nil
}

func swapImportAction(ctx *cli.Context) error {
	payload, err := os.ReadFile(ctx.String("file"))
	if err != nil {
		return err
	}
	c, err := swapCoordinator(ctx)
	if err != nil {
		return err
	}
	info, err := c.ImportPublic(
		ctx.Uint64(swapIDFlag.Name), payload, ctx.String("checksum"),
	)
	if err != nil {
		return err
	}
	printRespJSON(info)
	return nil
}
