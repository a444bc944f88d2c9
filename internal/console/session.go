package console

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Session is built once at startup and read-only afterwards.
type Session struct {
	ID          uuid.UUID
	Address     common.Address
	Network     string
	ExplorerURL string
}

func NewSession(address common.Address, network, explorerURL string) Session {
	return Session{
		ID:          uuid.New(),
		Address:     address,
		Network:     network,
		ExplorerURL: strings.TrimRight(explorerURL, "/"),
	}
}

// TxURL links a transaction on the block explorer.
func (s Session) TxURL(hash common.Hash) string {
	if s.ExplorerURL == "" {
		return hash.Hex()
	}
	return fmt.Sprintf("%s/tx/%s", s.ExplorerURL, hash.Hex())
}
