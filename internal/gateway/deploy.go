package gateway

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/javi2610/CIAD-P2/internal/contracts"
)

// DeployResult describes a confirmed contract creation.
type DeployResult struct {
	Deployer    common.Address
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// DeployerAddress returns the account a key deploys from.
func DeployerAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Deploy creates the artifact's contract with the deployer as initial owner
// and waits for the creation receipt.
func Deploy(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, art *contracts.Artifact, poll time.Duration) (*DeployResult, error) {
	if art == nil || len(art.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact has no bytecode")
	}

	deployer := DeployerAddress(key)
	params, err := ownerConstructorArgs(art.ABI, deployer)
	if err != nil {
		return nil, err
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	address, tx, _, err := bind.DeployContract(opts, art.ABI, art.Bytecode, backend, params...)
	if err != nil {
		return nil, fmt.Errorf("deploy tx: %w", err)
	}

	receipt, err := WaitForReceipt(ctx, backend, tx.Hash(), poll)
	if err != nil {
		return nil, fmt.Errorf("wait for deployment %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}

	res := &DeployResult{
		Deployer: deployer,
		Address:  address,
		TxHash:   tx.Hash(),
		GasUsed:  receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

// ownerConstructorArgs supports constructors taking nothing or a single
// initial owner address.
func ownerConstructorArgs(parsed abi.ABI, owner common.Address) ([]interface{}, error) {
	inputs := parsed.Constructor.Inputs
	switch {
	case len(inputs) == 0:
		return nil, nil
	case len(inputs) == 1 && inputs[0].Type.T == abi.AddressTy:
		return []interface{}{owner}, nil
	default:
		return nil, fmt.Errorf("unsupported constructor %s", parsed.Constructor.Sig)
	}
}
