// Package console is the interactive marketplace client: a menu dispatcher
// over MenuState and one handler per Action. Handlers gather validated input,
// check preconditions with read-only calls, submit at most one transaction and
// report the outcome; failures never leave the handler.
package console

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/journal"
	"github.com/javi2610/CIAD-P2/internal/metrics"
	"github.com/javi2610/CIAD-P2/internal/money"
	"github.com/javi2610/CIAD-P2/internal/tui"
)

type Options struct {
	// LowBalance is the ether amount below which the root menu warns.
	LowBalance decimal.Decimal
	Journal    journal.Sink
	Metrics    *metrics.Registry
	Logger     *zap.Logger
	// OnTransition is called after every dispatcher step.
	OnTransition func(from, to MenuState)
}

type handlerFunc func(ctx context.Context) error

type Console struct {
	gw         gateway.Gateway
	ui         tui.UI
	session    Session
	lowBalance *big.Int
	journal    journal.Sink
	metrics    *metrics.Registry
	logger     *zap.Logger
	observe    func(from, to MenuState)
	handlers   map[Action]handlerFunc
	inFlight   atomic.Bool
}

func New(gw gateway.Gateway, ui tui.UI, session Session, opts Options) *Console {
	c := &Console{
		gw:      gw,
		ui:      ui,
		session: session,
		journal: opts.Journal,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		observe: opts.OnTransition,
	}
	if c.journal == nil {
		c.journal = journal.Nop{}
	}
	if c.metrics == nil {
		c.metrics = metrics.NewRegistry()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("session", session.ID.String()))

	c.lowBalance = new(big.Int)
	if wei, err := money.ToWei(opts.LowBalance); err == nil {
		c.lowBalance = wei
	}

	c.handlers = map[Action]handlerFunc{
		ActionMint:         c.mint,
		ActionTransfer:     c.transfer,
		ActionListMine:     c.listMine,
		ActionListForSale:  c.listForSale,
		ActionCancelSale:   c.cancelSale,
		ActionBuy:          c.buy,
		ActionViewListed:   c.viewListed,
		ActionQueryOwner:   c.queryOwner,
		ActionQueryPrice:   c.queryPrice,
		ActionQueryBalance: c.queryBalance,
	}
	return c
}

// Busy reports whether a transaction is awaiting confirmation.
func (c *Console) Busy() bool { return c.inFlight.Load() }

// Run drives the menus until the user exits, input ends or ctx is cancelled.
// Action failures are reported on screen and never returned.
func (c *Console) Run(ctx context.Context) error {
	c.logger.Info("console started",
		zap.String("address", c.session.Address.Hex()),
		zap.String("network", c.session.Network))

	state := StateRoot
	for state != StateTerminated {
		next := StateTerminated
		if ctx.Err() == nil {
			next = c.step(ctx, state)
		}
		if c.observe != nil {
			c.observe(state, next)
		}
		if next != state {
			c.logger.Debug("menu transition", zap.Stringer("from", state), zap.Stringer("to", next))
		}
		state = next
	}

	c.ui.Info("Goodbye!")
	c.logger.Info("console stopped")
	return nil
}

func (c *Console) step(ctx context.Context, state MenuState) MenuState {
	m, ok := menus[state]
	if !ok {
		return StateTerminated
	}
	if state == StateRoot {
		c.showAccount(ctx)
	}

	idx, err := c.ui.Select(m.title, m.labels())
	if err != nil {
		if !errors.Is(err, tui.ErrAborted) {
			c.logger.Warn("menu prompt failed", zap.Error(err))
		}
		return StateTerminated
	}

	item := m.items[idx]
	if item.action != ActionNone {
		c.perform(ctx, item)
	}
	return item.target
}

// perform is the failure boundary around a handler.
func (c *Console) perform(ctx context.Context, item menuItem) {
	action := item.action
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", zap.Stringer("action", action), zap.Any("panic", r))
			c.metrics.IncAction(action.String(), metrics.OutcomeFailed)
			c.ui.Failure(fmt.Sprintf("%s failed: unexpected error", item.label))
		}
	}()

	handler, ok := c.handlers[action]
	if !ok {
		c.ui.Failure(fmt.Sprintf("%s is not available", item.label))
		return
	}

	c.ui.Header(item.label)
	err := handler(ctx)

	var (
		pre *PreconditionError
		rce *RemoteCallError
	)
	switch {
	case err == nil:
		c.metrics.IncAction(action.String(), metrics.OutcomeSuccess)
	case errors.Is(err, ErrDeclined):
		c.metrics.IncAction(action.String(), metrics.OutcomeDeclined)
		c.ui.Info("Operation cancelled.")
	case errors.Is(err, tui.ErrAborted):
		c.metrics.IncAction(action.String(), metrics.OutcomeDeclined)
		c.ui.Info("Input cancelled.")
	case errors.As(err, &pre):
		c.metrics.IncAction(action.String(), metrics.OutcomeRejected)
		c.logger.Info("precondition failed", zap.Stringer("action", action), zap.String("reason", pre.Reason))
		c.ui.Failure(pre.Reason)
	case errors.As(err, &rce):
		c.metrics.IncAction(action.String(), metrics.OutcomeFailed)
		c.metrics.IncRemoteError(rce.Op)
		c.logger.Warn("remote call failed", zap.Stringer("action", action), zap.String("op", rce.Op), zap.Error(rce.Err))
		if !rce.shown {
			c.ui.Failure(fmt.Sprintf("%s failed: %v", item.label, rce.Err))
		}
	default:
		c.metrics.IncAction(action.String(), metrics.OutcomeFailed)
		c.logger.Error("action failed", zap.Stringer("action", action), zap.Error(err))
		c.ui.Failure(fmt.Sprintf("%s failed: %v", item.label, err))
	}
}

// showAccount prints the signer and a freshly read balance.
func (c *Console) showAccount(ctx context.Context) {
	c.ui.Header(fmt.Sprintf("NFT Marketplace (%s)", c.session.Network))
	c.ui.Info(fmt.Sprintf("Account: %s", c.session.Address.Hex()))

	bal, err := c.gw.BalanceOf(ctx, c.session.Address)
	if err != nil {
		c.metrics.IncRemoteError("balance")
		c.logger.Warn("balance unavailable", zap.Error(err))
		c.ui.Warning(fmt.Sprintf("Could not fetch balance: %v", err))
		return
	}

	c.metrics.SetBalance(money.FromWei(bal).InexactFloat64())
	c.ui.Info(fmt.Sprintf("Balance: %s ETH", money.FormatEther(bal)))
	if bal.Cmp(c.lowBalance) < 0 {
		c.ui.Warning(fmt.Sprintf("Low balance: below %s ETH, transactions may fail for lack of gas.",
			money.FormatEther(c.lowBalance)))
	}
}
