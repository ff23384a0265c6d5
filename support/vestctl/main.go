package main

import (
	"fmt"
	"os"
	"sort"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("vestctl")

func newApp() *cli.App {
	app := &cli.App{
		Name:        "vestctl",
		Usage:       "Operate a local vesting ledger",
		Description: "Creates, funds and distributes vesting records on a ledger kept in a JSON snapshot file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "state",
				Usage:   "ledger snapshot file",
				Value:   "vesting-ledger.json",
				EnvVars: []string{"VESTCTL_STATE"},
			},
			&cli.StringFlag{
				Name:    "keys",
				Usage:   "directory holding named keys",
				Value:   "keys",
				EnvVars: []string{"VESTCTL_KEYS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"VESTCTL_LOG_LEVEL"},
			},
		},
		Before: func(cctx *cli.Context) error {
			return logging.SetLogLevel("*", cctx.String("log-level"))
		},
		Commands: []*cli.Command{
			keygenCmd,
			addressCmd,
			genesisCmd,
			mintCmd,
			createCmd,
			fundCmd,
			distributeCmd,
			showCmd,
			balanceCmd,
			clockCmd,
			deriveCmd,
			decodeCmd,
		},
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	for _, c := range app.Commands {
		sort.Sort(cli.FlagsByName(c.Flags))
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
