package console

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/journal"
)

type submission struct {
	action  Action
	tokenID *big.Int
	// progress is shown while the transaction is pending
	progress string
	send     func(ctx context.Context) (gateway.TransactionHandle, error)
	// success renders the confirmation line
	success func(*gateway.Receipt) string
}

// submit sends exactly one transaction and waits for its receipt. Only one
// submission may be unconfirmed at a time. Once sent, the transaction is
// awaited even if ctx is cancelled.
func (c *Console) submit(ctx context.Context, s submission) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return precondition("another transaction is still pending")
	}
	defer c.inFlight.Store(false)

	pa := &PendingAction{Kind: s.action, TokenID: s.tokenID, Summary: s.progress, Status: StatusValidated}
	log := c.logger.With(zap.Stringer("action", s.action))
	if s.tokenID != nil {
		log = log.With(zap.String("token_id", s.tokenID.String()))
	}

	pending := c.ui.Pending(s.progress + "...")
	handle, err := s.send(ctx)
	if err != nil {
		pa.markFailed(err)
		c.record(ctx, pa)
		log.Warn("submission failed", zap.Error(err))
		pending.Fail(fmt.Sprintf("Transaction failed: %v", err))
		return &RemoteCallError{Op: s.action.String(), Err: err, shown: true}
	}

	pa.markSubmitted(handle.Hash())
	c.record(ctx, pa)
	log = log.With(zap.String("tx_hash", handle.Hash().Hex()))
	log.Info("transaction submitted")

	start := time.Now()
	receipt, err := handle.Confirm(context.WithoutCancel(ctx))
	c.metrics.ObserveConfirmation(s.action.String(), time.Since(start))
	if err != nil {
		pa.markFailed(err)
		c.record(ctx, pa)
		log.Warn("transaction failed", zap.Error(err))
		pending.Fail(fmt.Sprintf("Transaction failed: %v", err))
		c.ui.Info(fmt.Sprintf("Transaction: %s", c.session.TxURL(handle.Hash())))
		return &RemoteCallError{Op: s.action.String(), Err: err, shown: true}
	}

	pa.markConfirmed()
	c.record(ctx, pa)
	log.Info("transaction confirmed",
		zap.Uint64("block", receipt.BlockNumber),
		zap.Uint64("gas_used", receipt.GasUsed))
	pending.Succeed(s.success(receipt))
	c.ui.Info(fmt.Sprintf("Transaction: %s", c.session.TxURL(receipt.TxHash)))
	return nil
}

// record appends the action's current status to the journal. Journal
// failures are logged only.
func (c *Console) record(ctx context.Context, pa *PendingAction) {
	entry := journal.Entry{
		SessionID: c.session.ID.String(),
		Action:    pa.Kind.String(),
		At:        time.Now().UTC(),
	}
	if pa.TokenID != nil {
		entry.TokenID = pa.TokenID.String()
	}
	if pa.TxHash != (common.Hash{}) {
		entry.TxHash = pa.TxHash.Hex()
	}
	switch pa.Status {
	case StatusSubmitted:
		entry.Status = journal.StatusSubmitted
	case StatusConfirmed:
		entry.Status = journal.StatusConfirmed
	case StatusFailed:
		entry.Status = journal.StatusFailed
		if pa.Err != nil {
			entry.Error = pa.Err.Error()
		}
	default:
		return
	}

	if err := c.journal.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("journal append failed", zap.Error(err), zap.String("status", entry.Status))
	}
}

// ask prompts until parse accepts the input. Rejections are shown and the
// same field is asked again.
func ask[T any](c *Console, prompt string, parse func(string) (T, error)) (T, error) {
	for {
		raw, err := c.ui.Input(prompt)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(raw)
		if err != nil {
			c.logger.Debug("input rejected", zap.String("prompt", prompt), zap.Error(err))
			c.ui.Failure(err.Error())
			continue
		}
		return v, nil
	}
}
