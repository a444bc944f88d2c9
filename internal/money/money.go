// Package money converts between ether amounts typed by the user and the wei
// amounts the contract works in.
package money

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of one ether in wei.
const Decimals = 18

// MaxWeiBits is the width of the contract's uint256 amounts.
const MaxWeiBits = 256

// ToWei converts an ether amount to wei. Amounts that are negative, carry
// more precision than one wei or do not fit in a uint256 are rejected.
func ToWei(eth decimal.Decimal) (*big.Int, error) {
	if eth.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", eth.String())
	}
	wei := eth.Shift(Decimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", eth.String(), Decimals)
	}
	out := wei.BigInt()
	if out.BitLen() > MaxWeiBits {
		return nil, fmt.Errorf("amount %s exceeds uint256 wei", eth.String())
	}
	return out, nil
}

// FromWei converts a wei amount to ether.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals)
}

// FormatEther renders a wei amount as ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	return FromWei(wei).String()
}

// ParseEther parses a decimal ether string into wei.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse ether %q: %w", s, err)
	}
	return ToWei(d)
}
