package gateway

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Gateway abstracts every call the console makes against the marketplace contract.
type Gateway interface {
	Mint(ctx context.Context, owner common.Address, uri string) (TransactionHandle, error)
	Transfer(ctx context.Context, from, to common.Address, tokenID *big.Int) (TransactionHandle, error)
	SetPrice(ctx context.Context, tokenID, price *big.Int) (TransactionHandle, error)
	CancelSale(ctx context.Context, tokenID *big.Int) (TransactionHandle, error)
	Buy(ctx context.Context, tokenID, payment *big.Int) (TransactionHandle, error)

	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	TokensOfOwner(ctx context.Context, owner common.Address) ([]*big.Int, error)
	ListedTokens(ctx context.Context) ([]*big.Int, error)
	PriceOf(ctx context.Context, tokenID *big.Int) (*big.Int, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) // native balance in wei
}

// TransactionHandle is a submitted mutation that has not been confirmed yet.
type TransactionHandle interface {
	Hash() common.Hash
	// Confirm blocks until the transaction is final. A reverted transaction
	// is reported as an error.
	Confirm(ctx context.Context) (*Receipt, error)
}

// Receipt describes a confirmed transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// HealthChecker is implemented by gateways that can probe their RPC endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ErrReverted is returned by Confirm when the transaction was mined but failed.
var ErrReverted = errors.New("transaction reverted")

// Mutating operation names, used for logs, metrics and the fake client.
const (
	OpMint       = "mint"
	OpTransfer   = "transfer"
	OpSetPrice   = "setPrice"
	OpCancelSale = "cancelSale"
	OpBuy        = "buy"
)
