package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javi2610/CIAD-P2/internal/config"
	"github.com/javi2610/CIAD-P2/internal/journal"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the transaction journal",
	}
	cmd.AddCommand(newJournalVerifyCmd())
	return cmd
}

func newJournalVerifyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify [env-file]",
		Short: "Check the HMAC signature of every entry in a journal file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runJournalVerify(envFileArg(args), file, cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Journal verification failed: %v\n", err)
				return fmt.Errorf("%w: %v", errReported, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "journal file to check (default JOURNAL_PATH)")
	return cmd
}

func runJournalVerify(envFile, file string, out io.Writer) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Journal.Path
	}
	if file == "" {
		return fmt.Errorf("no journal file: set JOURNAL_PATH or pass --file")
	}
	if cfg.Journal.HMACSecret == "" {
		return fmt.Errorf("JOURNAL_HMAC_SECRET is required to verify signatures")
	}

	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	verified, failures, err := journal.VerifyLines(in, &journal.Signer{Secret: cfg.Journal.HMACSecret.Reveal()})
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(out, "✖ %v\n", f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d entries did not verify", len(failures), verified+len(failures))
	}
	fmt.Fprintf(out, "✔ %d entries verified in %s\n", verified, file)
	return nil
}
