package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/javi2610/CIAD-P2/internal/config"
)

// errReported marks failures that were already printed to the user.
var errReported = errors.New("failure reported")

func newRootCmd(in, out *os.File) *cobra.Command {
	var simulate bool

	root := &cobra.Command{
		Use:           "nftcli [env-file]",
		Short:         "Interactive NFT marketplace console",
		Long:          "Mint, trade and query NFTs on a deployed marketplace contract. Settings are read from the environment and from env-file (default .env).",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFileArg(args))
			if err != nil {
				return err
			}
			return runConsole(cmd.Context(), cfg, simulate, in, out)
		},
	}
	root.SetOut(out)
	root.Flags().BoolVar(&simulate, "simulate", false, "use an in-memory marketplace instead of the network")

	root.AddCommand(newDeployCmd(), newJournalCmd())
	return root
}

func envFileArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// runConsole runs the menus until exit. On interrupt it returns at once
// unless a transaction is awaiting confirmation.
func runConsole(ctx context.Context, cfg *config.AppConfig, simulate bool, in, out *os.File) error {
	app, err := wire(ctx, cfg, simulate, in, out)
	if err != nil {
		return err
	}
	defer app.Close()

	done := make(chan error, 1)
	go func() { done <- app.console.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if app.console.Busy() {
			return <-done
		}
		app.ui.Info("Goodbye!")
		return nil
	}
}
