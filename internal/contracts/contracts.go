// Package contracts holds the ABI of the marketplace NFT contract and the
// helpers used to load compile artifacts and map gateway operations onto
// contract methods.
package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// NFTABI is the ABI of the MyNFT marketplace contract the console was built against.
//
//go:embed nft.abi.json
var NFTABI []byte

// ParseABI parses a raw JSON ABI array.
func ParseABI(raw []byte) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}
	return parsed, nil
}

// Artifact is the subset of a Hardhat or Foundry compile artifact needed to
// talk to and deploy a contract.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads a compile artifact from disk. Both the Hardhat layout
// ("bytecode": "0x...") and the Foundry layout ("bytecode": {"object": "0x..."})
// are accepted.
func LoadArtifact(path string) (*Artifact, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var raw rawArtifact
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", path)
	}

	parsed, err := ParseABI(raw.ABI)
	if err != nil {
		return nil, err
	}

	code, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	return &Artifact{
		ContractName: raw.ContractName,
		ABI:          parsed,
		Bytecode:     code,
	}, nil
}

// LoadABI reads a contract ABI from path, either a bare JSON ABI array or a
// compile artifact carrying one.
func LoadABI(path string) (abi.ABI, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(blob), []byte("[")) {
		parsed, err := ParseABI(blob)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("%s: %w", path, err)
		}
		return parsed, nil
	}
	art, err := LoadArtifact(path)
	if err != nil {
		return abi.ABI{}, err
	}
	return art.ABI, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var hexCode string
	if err := json.Unmarshal(raw, &hexCode); err != nil {
		var foundry struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &foundry); err != nil {
			return nil, fmt.Errorf("unrecognised bytecode field")
		}
		hexCode = foundry.Object
	}

	hexCode = strings.TrimSpace(hexCode)
	if hexCode == "" || hexCode == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(hexCode, "0x") {
		hexCode = "0x" + hexCode
	}
	return common.FromHex(hexCode), nil
}

// Methods names the contract method backing each gateway operation. A value
// is either a method name ("mintNFT") or a full signature
// ("safeTransferFrom(address,address,uint256)") for overloaded methods.
type Methods struct {
	Mint          string
	Transfer      string
	SetPrice      string
	CancelSale    string
	Buy           string
	OwnerOf       string
	TokensOfOwner string
	ListedTokens  string
	PriceOf       string
}

// DefaultMethods returns the method names of the MyNFT contract.
func DefaultMethods() Methods {
	return Methods{
		Mint:          "mintNFT",
		Transfer:      "safeTransferFrom(address,address,uint256)",
		SetPrice:      "setPrice",
		CancelSale:    "cancelSale",
		Buy:           "buyNFT",
		OwnerOf:       "ownerOf",
		TokensOfOwner: "tokensOfOwner",
		ListedTokens:  "getTokensEnVenta",
		PriceOf:       "tokenPrices",
	}
}

// WithDefaults fills empty entries from DefaultMethods.
func (m Methods) WithDefaults() Methods {
	def := DefaultMethods()
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&m.Mint, def.Mint},
		{&m.Transfer, def.Transfer},
		{&m.SetPrice, def.SetPrice},
		{&m.CancelSale, def.CancelSale},
		{&m.Buy, def.Buy},
		{&m.OwnerOf, def.OwnerOf},
		{&m.TokensOfOwner, def.TokensOfOwner},
		{&m.ListedTokens, def.ListedTokens},
		{&m.PriceOf, def.PriceOf},
	} {
		if strings.TrimSpace(*f.dst) == "" {
			*f.dst = f.val
		}
	}
	return m
}

// Resolve maps every entry to the key go-ethereum uses for the method in
// parsed.Methods, which differs from the Solidity name for overloads.
func (m Methods) Resolve(parsed abi.ABI) (Methods, error) {
	out := m.WithDefaults()
	for _, f := range []struct {
		op  string
		ref *string
	}{
		{"mint", &out.Mint},
		{"transfer", &out.Transfer},
		{"setPrice", &out.SetPrice},
		{"cancelSale", &out.CancelSale},
		{"buy", &out.Buy},
		{"ownerOf", &out.OwnerOf},
		{"tokensOfOwner", &out.TokensOfOwner},
		{"listedTokens", &out.ListedTokens},
		{"priceOf", &out.PriceOf},
	} {
		key, err := lookup(parsed, *f.ref)
		if err != nil {
			return Methods{}, fmt.Errorf("%s: %w", f.op, err)
		}
		*f.ref = key
	}
	return out, nil
}

func lookup(parsed abi.ABI, ref string) (string, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), " ", "")
	if !strings.Contains(ref, "(") {
		if _, ok := parsed.Methods[ref]; !ok {
			return "", fmt.Errorf("method %q not found in abi", ref)
		}
		return ref, nil
	}
	for key, method := range parsed.Methods {
		if method.Sig == ref {
			return key, nil
		}
	}
	return "", fmt.Errorf("method signature %q not found in abi", ref)
}
