package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/javi2610/CIAD-P2/internal/config"
	"github.com/javi2610/CIAD-P2/internal/console"
	"github.com/javi2610/CIAD-P2/internal/contracts"
	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/journal"
	"github.com/javi2610/CIAD-P2/internal/logging"
	"github.com/javi2610/CIAD-P2/internal/metrics"
	"github.com/javi2610/CIAD-P2/internal/money"
	"github.com/javi2610/CIAD-P2/internal/tui"
)

const shutdownTimeout = 5 * time.Second

var (
	// demoAccount signs in simulate mode when no PRIVATE_KEY is configured.
	demoAccount = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	demoSeller  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

// app holds the wired console and everything that has to be released with it.
type app struct {
	console  *console.Console
	ui       tui.UI
	logger   *zap.Logger
	closeLog func() error
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func wire(ctx context.Context, cfg *config.AppConfig, simulate bool, in, out *os.File) (*app, error) {
	if !simulate {
		if err := cfg.ValidateConsole(); err != nil {
			return nil, err
		}
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Service.LogLevel, File: cfg.Service.LogFile})
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, closeLog: closeLog}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	var (
		gw        gateway.Gateway
		address   common.Address
		network   = cfg.Chain.Network
		explorer  = cfg.Chain.ExplorerURL
		rpcHealth metrics.HealthFunc
	)
	if simulate {
		fake := newSimulatedMarket(cfg)
		gw, address, rpcHealth = fake, fake.Caller(), fake.Ping
		network, explorer = "simulated", ""
	} else {
		contractABI, source, err := loadContractABI(cfg)
		if err != nil {
			return fail(err)
		}
		logger.Info("binding contract", zap.String("address", cfg.Chain.ContractAddress), zap.String("abi", source))

		client, err := gateway.NewEthClient(ctx, gateway.EthClientConfig{
			RPCURL:          cfg.Chain.RPCURL.Reveal(),
			PrivateKeyHex:   cfg.Chain.PrivateKey.Reveal(),
			ContractAddress: cfg.Chain.ContractAddress,
			ABI:             contractABI,
			Methods:         cfg.Chain.Methods,
			PollInterval:    cfg.Chain.ReceiptPoll,
		})
		if err != nil {
			return fail(fmt.Errorf("connect to %s: %w", cfg.Chain.Network, err))
		}
		a.closers = append(a.closers, client.Close)
		gw, address, rpcHealth = client, client.Address(), client.Ping
	}

	sink, sinkHealth, err := openJournal(ctx, cfg.Journal, a)
	if err != nil {
		return fail(err)
	}

	reg := metrics.NewRegistry()
	if cfg.Service.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.Service.MetricsAddr, reg, rpcHealth, sinkHealth, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		a.closers = append(a.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", zap.Error(err))
			}
		})
	}

	session := console.NewSession(address, network, explorer)
	a.ui = tui.New(in, out)
	a.console = console.New(gw, a.ui, session, console.Options{
		LowBalance: cfg.Console.LowBalanceThreshold,
		Journal:    sink,
		Metrics:    reg,
		Logger:     logger,
	})
	return a, nil
}

// loadContractABI picks the ABI to bind: CONTRACT_ABI when set, else the
// deploy artifact when it exists on disk, else nil for the embedded ABI.
func loadContractABI(cfg *config.AppConfig) (*abi.ABI, string, error) {
	path := cfg.Chain.ABIPath
	if path == "" {
		if _, err := os.Stat(cfg.Deploy.ArtifactPath); err != nil {
			return nil, "embedded", nil
		}
		path = cfg.Deploy.ArtifactPath
	}
	parsed, err := contracts.LoadABI(path)
	if err != nil {
		return nil, "", fmt.Errorf("load contract abi: %w", err)
	}
	return &parsed, path, nil
}

// openJournal prefers Postgres, then a local file, then nothing. Entries are
// signed when a secret is configured.
func openJournal(ctx context.Context, cfg config.JournalConfig, a *app) (journal.Sink, metrics.HealthFunc, error) {
	var (
		sink   journal.Sink = journal.Nop{}
		health metrics.HealthFunc
	)
	switch {
	case cfg.PostgresDSN != "":
		pg, err := journal.NewPostgresSink(ctx, cfg.PostgresDSN.Reveal())
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, pg.Close)
		sink, health = pg, pg.Ping
	case cfg.Path != "":
		fs, err := journal.NewFileSink(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		sink = fs
	}

	if cfg.HMACSecret != "" {
		sink = journal.Signed(sink, &journal.Signer{Secret: cfg.HMACSecret.Reveal()})
	}
	return sink, health, nil
}

// newSimulatedMarket returns an in-memory marketplace with a funded account
// and a couple of listings from another seller.
func newSimulatedMarket(cfg *config.AppConfig) *gateway.FakeClient {
	caller := demoAccount
	if key, err := gateway.ParsePrivateKey(cfg.Chain.PrivateKey.Reveal()); err == nil {
		caller = gateway.DeployerAddress(key)
	}

	fake := gateway.NewFakeClient(caller, mustEther("1"))
	fake.Seed(demoSeller, "https://example.com/nft/1.json", mustEther("0.01"))
	fake.Seed(demoSeller, "https://example.com/nft/2.json", mustEther("0.05"))
	fake.Seed(caller, "https://example.com/nft/3.json", new(big.Int))
	return fake
}

func mustEther(s string) *big.Int {
	wei, err := money.ParseEther(s)
	if err != nil {
		panic(err)
	}
	return wei
}
