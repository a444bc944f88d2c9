package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javi2610/CIAD-P2/internal/config"
	"github.com/javi2610/CIAD-P2/internal/contracts"
	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/logging"
)

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy [env-file]",
		Short: "Deploy the NFT marketplace contract from its compile artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runDeploy(cmd.Context(), envFileArg(args), cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Deployment failed: %v\n", err)
				return fmt.Errorf("%w: %v", errReported, err)
			}
			return nil
		},
	}
}

func runDeploy(ctx context.Context, envFile string, out io.Writer) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDeploy(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Service.LogLevel, File: cfg.Service.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	art, err := contracts.LoadArtifact(cfg.Deploy.ArtifactPath)
	if err != nil {
		return err
	}
	name := art.ContractName
	if name == "" {
		name = "Contract"
	}

	key, err := gateway.ParsePrivateKey(cfg.Chain.PrivateKey.Reveal())
	if err != nil {
		return err
	}
	deployer := gateway.DeployerAddress(key)
	fmt.Fprintf(out, "Deploying %s with the account: %s\n", name, deployer.Hex())

	cli, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL.Reveal())
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer cli.Close()

	res, err := gateway.Deploy(ctx, cli, key, art, cfg.Chain.ReceiptPoll)
	if err != nil {
		logger.Error("deployment failed", zap.String("deployer", deployer.Hex()), zap.Error(err))
		return err
	}
	logger.Info("contract deployed",
		zap.String("contract", name),
		zap.String("address", res.Address.Hex()),
		zap.String("tx_hash", res.TxHash.Hex()),
		zap.Uint64("gas_used", res.GasUsed))

	fmt.Fprintf(out, "%s deployed to: %s\n", name, res.Address.Hex())
	fmt.Fprintf(out, "Transaction hash: %s\n", res.TxHash.Hex())
	fmt.Fprintf(out, "Gas used: %d\n", res.GasUsed)
	if cfg.Chain.ExplorerURL != "" {
		fmt.Fprintf(out, "Explorer: %s/tx/%s\n", cfg.Chain.ExplorerURL, res.TxHash.Hex())
	}
	return nil
}
