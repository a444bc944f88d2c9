// Package validate checks raw user input against the field kinds the console
// asks for. Every function is total: any string yields either an accepted
// value or a *Rejection, and nothing here performs I/O.
package validate

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/javi2610/CIAD-P2/internal/money"
)

// Kind identifies the shape a field must have.
type Kind int

const (
	URI Kind = iota + 1
	Address
	TokenID
	PositiveDecimal
)

func (k Kind) String() string {
	switch k {
	case URI:
		return "uri"
	case Address:
		return "address"
	case TokenID:
		return "token id"
	case PositiveDecimal:
		return "positive decimal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	uriPrefix = "https://"

	// longer inputs, and decimal exponents beyond it, are rejected before
	// any arithmetic is attempted
	maxInputLen = 256
)

var tokenIDPattern = regexp.MustCompile(`^\d+$`)

// Rejection explains why an input was not accepted.
type Rejection struct {
	Kind   Kind
	Input  string
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(kind Kind, input, reason string) *Rejection {
	return &Rejection{Kind: kind, Input: input, Reason: reason}
}

// Validate reports whether raw is acceptable for kind.
func Validate(kind Kind, raw string) error {
	var err error
	switch kind {
	case URI:
		_, err = ParseURI(raw)
	case Address:
		_, err = ParseAddress(raw)
	case TokenID:
		_, err = ParseTokenID(raw)
	case PositiveDecimal:
		_, err = ParsePrice(raw)
	default:
		err = reject(kind, raw, "unsupported field")
	}
	return err
}

// ParseURI accepts token metadata URLs served over https.
func ParseURI(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, uriPrefix) {
		return "", reject(URI, raw, "URL must start with 'https://'")
	}
	return s, nil
}

// ParseAddress accepts a 20-byte hex address, with or without the 0x prefix.
func ParseAddress(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return common.Address{}, reject(Address, raw, "invalid Ethereum address")
	}
	return common.HexToAddress(s), nil
}

// ParseTokenID accepts a non-negative base-10 integer that fits in uint256.
func ParseTokenID(raw string) (*big.Int, error) {
	s := strings.TrimSpace(raw)
	if len(s) > maxInputLen || !tokenIDPattern.MatchString(s) {
		return nil, reject(TokenID, raw, "invalid token ID")
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.BitLen() > 256 {
		return nil, reject(TokenID, raw, "invalid token ID")
	}
	return id, nil
}

// ParsePrice accepts a finite decimal ether amount strictly greater than zero
// that fits in a uint256 once converted to wei.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxInputLen {
		return decimal.Zero, reject(PositiveDecimal, raw, "invalid price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || d.Exponent() > maxInputLen {
		return decimal.Zero, reject(PositiveDecimal, raw, "invalid price")
	}
	if _, err := money.ToWei(d); err != nil {
		return decimal.Zero, reject(PositiveDecimal, raw, "invalid price")
	}
	return d, nil
}
