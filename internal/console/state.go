package console

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MenuState is the dispatcher's position. It changes only on user selection.
type MenuState int

const (
	StateRoot MenuState = iota
	StatePersonal
	StateMarketplace
	StateQuery
	StateTerminated
)

func (s MenuState) String() string {
	switch s {
	case StateRoot:
		return "root"
	case StatePersonal:
		return "personal"
	case StateMarketplace:
		return "marketplace"
	case StateQuery:
		return "query"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action identifies a handler. Menu labels are display only.
type Action int

const (
	ActionNone Action = iota
	ActionMint
	ActionTransfer
	ActionListMine
	ActionListForSale
	ActionCancelSale
	ActionBuy
	ActionViewListed
	ActionQueryOwner
	ActionQueryPrice
	ActionQueryBalance
)

var actionNames = map[Action]string{
	ActionNone:         "none",
	ActionMint:         "mint",
	ActionTransfer:     "transfer",
	ActionListMine:     "list_mine",
	ActionListForSale:  "list_for_sale",
	ActionCancelSale:   "cancel_sale",
	ActionBuy:          "buy",
	ActionViewListed:   "view_listed",
	ActionQueryOwner:   "query_owner",
	ActionQueryPrice:   "query_price",
	ActionQueryBalance: "query_balance",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type menuItem struct {
	label  string
	action Action
	// target is where the dispatcher goes after the item; actions stay in
	// their section
	target MenuState
}

type menu struct {
	title string
	items []menuItem
}

func (m menu) labels() []string {
	out := make([]string, len(m.items))
	for i, it := range m.items {
		out[i] = it.label
	}
	return out
}

var menus = map[MenuState]menu{
	StateRoot: {
		title: "Main menu",
		items: []menuItem{
			{label: "Personal", target: StatePersonal},
			{label: "Marketplace", target: StateMarketplace},
			{label: "Queries", target: StateQuery},
			{label: "Exit", target: StateTerminated},
		},
	},
	StatePersonal: {
		title: "Personal",
		items: []menuItem{
			{label: "Mint NFT", action: ActionMint, target: StatePersonal},
			{label: "Transfer NFT", action: ActionTransfer, target: StatePersonal},
			{label: "List my NFTs", action: ActionListMine, target: StatePersonal},
			{label: "Back", target: StateRoot},
		},
	},
	StateMarketplace: {
		title: "Marketplace",
		items: []menuItem{
			{label: "Put NFT up for sale", action: ActionListForSale, target: StateMarketplace},
			{label: "Cancel sale", action: ActionCancelSale, target: StateMarketplace},
			{label: "Buy NFT", action: ActionBuy, target: StateMarketplace},
			{label: "View NFTs for sale", action: ActionViewListed, target: StateMarketplace},
			{label: "Back", target: StateRoot},
		},
	},
	StateQuery: {
		title: "Queries",
		items: []menuItem{
			{label: "NFT owner", action: ActionQueryOwner, target: StateQuery},
			{label: "NFT price", action: ActionQueryPrice, target: StateQuery},
			{label: "My balance", action: ActionQueryBalance, target: StateQuery},
			{label: "Back", target: StateRoot},
		},
	},
}

// ActionStatus is the lifecycle of a PendingAction.
type ActionStatus int

const (
	StatusValidated ActionStatus = iota
	StatusSubmitted
	StatusConfirmed
	StatusFailed
)

func (s ActionStatus) String() string {
	switch s {
	case StatusValidated:
		return "validated"
	case StatusSubmitted:
		return "submitted"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// PendingAction lives for one handler invocation.
type PendingAction struct {
	Kind    Action
	TokenID *big.Int
	Summary string
	Status  ActionStatus
	TxHash  common.Hash
	Err     error
}

func (p *PendingAction) markSubmitted(hash common.Hash) {
	if p.Status == StatusValidated {
		p.Status = StatusSubmitted
		p.TxHash = hash
	}
}

func (p *PendingAction) markConfirmed() {
	if p.Status == StatusSubmitted {
		p.Status = StatusConfirmed
	}
}

func (p *PendingAction) markFailed(err error) {
	if p.Status == StatusValidated || p.Status == StatusSubmitted {
		p.Status = StatusFailed
		p.Err = err
	}
}
