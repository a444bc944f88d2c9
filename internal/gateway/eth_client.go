package gateway

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/javi2610/CIAD-P2/internal/contracts"
)

const defaultPollInterval = 2 * time.Second

// Backend is the subset of an Ethereum node the gateway needs. *ethclient.Client
// and the simulated backend both satisfy it.
type Backend interface {
	bind.ContractBackend
	ReceiptReader
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ReceiptReader fetches transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthClient talks to the marketplace contract over JSON-RPC.
type EthClient struct {
	backend   Backend
	contract  *bind.BoundContract
	abi       abi.ABI
	address   common.Address
	methods   contracts.Methods
	chainID   *big.Int
	signer    common.Address
	transacts *bind.TransactOpts
	poll      time.Duration
	closer    func()
}

type EthClientConfig struct {
	RPCURL          string
	PrivateKeyHex   string
	ContractAddress string
	// ABI overrides the embedded marketplace ABI when set.
	ABI          *abi.ABI
	Methods      contracts.Methods
	PollInterval time.Duration
}

// NewEthClient dials cfg.RPCURL and binds the marketplace contract.
func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	c, err := NewEthClientWithBackend(ctx, cli, cfg)
	if err != nil {
		cli.Close()
		return nil, err
	}
	c.closer = cli.Close
	return c, nil
}

// NewEthClientWithBackend binds the contract on an already connected backend.
// cfg.RPCURL is ignored.
func NewEthClientWithBackend(ctx context.Context, backend Backend, cfg EthClientConfig) (*EthClient, error) {
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("nft contract address is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid nft contract address %q", cfg.ContractAddress)
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for submitting transactions")
	}

	var parsedABI abi.ABI
	if cfg.ABI != nil {
		parsedABI = *cfg.ABI
	} else {
		embedded, err := contracts.ParseABI(contracts.NFTABI)
		if err != nil {
			return nil, err
		}
		parsedABI = embedded
	}
	methods, err := cfg.Methods.Resolve(parsedABI)
	if err != nil {
		return nil, err
	}

	pk, err := ParsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	address := common.HexToAddress(cfg.ContractAddress)
	return &EthClient{
		backend:   backend,
		contract:  bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		abi:       parsedABI,
		address:   address,
		methods:   methods,
		chainID:   chainID,
		signer:    txOpts.From,
		transacts: txOpts,
		poll:      poll,
	}, nil
}

// ParsePrivateKey decodes a hex secp256k1 key, with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Address is the signer account every transaction is sent from.
func (c *EthClient) Address() common.Address { return c.signer }

func (c *EthClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *EthClient) Contract() common.Address { return c.address }

func (c *EthClient) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *EthClient) Mint(ctx context.Context, owner common.Address, uri string) (TransactionHandle, error) {
	return c.transact(ctx, nil, c.methods.Mint, owner, uri)
}

func (c *EthClient) Transfer(ctx context.Context, from, to common.Address, tokenID *big.Int) (TransactionHandle, error) {
	return c.transact(ctx, nil, c.methods.Transfer, from, to, tokenID)
}

func (c *EthClient) SetPrice(ctx context.Context, tokenID, price *big.Int) (TransactionHandle, error) {
	return c.transact(ctx, nil, c.methods.SetPrice, tokenID, price)
}

func (c *EthClient) CancelSale(ctx context.Context, tokenID *big.Int) (TransactionHandle, error) {
	return c.transact(ctx, nil, c.methods.CancelSale, tokenID)
}

func (c *EthClient) Buy(ctx context.Context, tokenID, payment *big.Int) (TransactionHandle, error) {
	return c.transact(ctx, payment, c.methods.Buy, tokenID)
}

func (c *EthClient) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	out, err := c.call(ctx, c.methods.OwnerOf, tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *EthClient) TokensOfOwner(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	out, err := c.call(ctx, c.methods.TokensOfOwner, owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (c *EthClient) ListedTokens(ctx context.Context) ([]*big.Int, error) {
	out, err := c.call(ctx, c.methods.ListedTokens)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (c *EthClient) PriceOf(ctx context.Context, tokenID *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, c.methods.PriceOf, tokenID)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *EthClient) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

func (c *EthClient) Ping(ctx context.Context) error {
	if c.backend == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := c.backend.BlockNumber(ctx)
	return err
}

func (c *EthClient) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (TransactionHandle, error) {
	if c.transacts == nil {
		return nil, fmt.Errorf("client is read-only")
	}

	opts := *c.transacts
	opts.Context = ctx
	opts.Value = value

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s tx: %w", method, err)
	}
	return &ethHandle{reader: c.backend, tx: tx, poll: c.poll}, nil
}

func (c *EthClient) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx, From: c.signer}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return out, nil
}

type ethHandle struct {
	reader ReceiptReader
	tx     *types.Transaction
	poll   time.Duration
}

func (h *ethHandle) Hash() common.Hash { return h.tx.Hash() }

func (h *ethHandle) Confirm(ctx context.Context) (*Receipt, error) {
	receipt, err := WaitForReceipt(ctx, h.reader, h.tx.Hash(), h.poll)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrReverted, h.tx.Hash().Hex())
	}
	return toReceipt(receipt), nil
}

func toReceipt(r *types.Receipt) *Receipt {
	out := &Receipt{TxHash: r.TxHash, GasUsed: r.GasUsed}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

// WaitForReceipt polls until the transaction is mined or context cancelled.
func WaitForReceipt(ctx context.Context, reader ReceiptReader, hash common.Hash, every time.Duration) (*types.Receipt, error) {
	if every <= 0 {
		every = defaultPollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		receipt, err := reader.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
