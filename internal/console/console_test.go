package console

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/journal"
	"github.com/javi2610/CIAD-P2/internal/tui"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func ether(s string) *big.Int {
	d := decimal.RequireFromString(s)
	return d.Shift(18).BigInt()
}

type harness struct {
	fake    *gateway.FakeClient
	out     *bytes.Buffer
	journal *journal.MemorySink
	steps   []string
}

func newHarness() *harness {
	return &harness{
		fake:    gateway.NewFakeClient(alice, ether("1")),
		out:     &bytes.Buffer{},
		journal: journal.NewMemorySink(),
	}
}

func (h *harness) console(gw gateway.Gateway, input string) *Console {
	ui := tui.NewLineUI(strings.NewReader(input), h.out)
	return New(gw, ui, NewSession(alice, "sepolia", "https://sepolia.etherscan.io"), Options{
		LowBalance: decimal.RequireFromString("0.005"),
		Journal:    h.journal,
		OnTransition: func(from, to MenuState) {
			h.steps = append(h.steps, from.String()+">"+to.String())
		},
	})
}

func (h *harness) run(t *testing.T, input string) {
	t.Helper()
	require.NoError(t, h.console(h.fake, input).Run(context.Background()))
}

// Menu choices as typed by the user.
const (
	rootPersonal    = "1\n"
	rootMarketplace = "2\n"
	rootQueries     = "3\n"
	rootExit        = "4\n"

	personalMint     = "1\n"
	personalTransfer = "2\n"
	personalList     = "3\n"
	personalBack     = "4\n"

	marketList   = "1\n"
	marketCancel = "2\n"
	marketBuy    = "3\n"
	marketView   = "4\n"
	marketBack   = "5\n"

	queryOwner   = "1\n"
	queryPrice   = "2\n"
	queryBalance = "3\n"
	queryBack    = "4\n"
)

func TestExitFromRoot(t *testing.T) {
	h := newHarness()
	h.run(t, rootExit)

	assert.Equal(t, []string{"root>terminated"}, h.steps)
	assert.Contains(t, h.out.String(), "Goodbye!")
	assert.Contains(t, h.out.String(), "Balance: 1 ETH")
}

func TestBackIsIdempotent(t *testing.T) {
	h := newHarness()
	h.run(t, rootPersonal+personalBack+rootPersonal+personalBack+rootQueries+queryBack+rootExit)

	assert.Equal(t, []string{
		"root>personal", "personal>root",
		"root>personal", "personal>root",
		"root>query", "query>root",
		"root>terminated",
	}, h.steps)
	assert.Empty(t, h.fake.Submitted())
}

func TestEndOfInputTerminates(t *testing.T) {
	h := newHarness()
	h.run(t, rootMarketplace)

	assert.Equal(t, []string{"root>marketplace", "marketplace>terminated"}, h.steps)
}

func TestCancelledContextTerminates(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.console(h.fake, rootPersonal).Run(ctx))
	assert.Equal(t, []string{"root>terminated"}, h.steps)
	assert.Zero(t, h.fake.Reads())
}

func TestMintRejectsNonHTTPSBeforeAnyCall(t *testing.T) {
	h := newHarness()
	h.run(t, rootPersonal+personalMint+"ipfs://abc\n")

	assert.Contains(t, h.out.String(), "✖ URL must start with 'https://'")
	assert.Contains(t, h.out.String(), "Input cancelled.")
	assert.Empty(t, h.fake.Submitted())
	assert.Empty(t, h.journal.Entries())
}

func TestMintAfterRejection(t *testing.T) {
	h := newHarness()
	h.run(t, rootPersonal+personalMint+"ipfs://abc\nhttps://example.com/1.json\n"+personalList+personalBack+rootExit)

	assert.Equal(t, []string{gateway.OpMint}, h.fake.Submitted())
	tokens, err := h.fake.TokensOfOwner(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	out := h.out.String()
	assert.Contains(t, out, "✔ NFT minted in block")
	assert.Contains(t, out, "Transaction: https://sepolia.etherscan.io/tx/0x")

	entries := h.journal.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, journal.StatusSubmitted, entries[0].Status)
	assert.Equal(t, journal.StatusConfirmed, entries[1].Status)
	assert.Equal(t, entries[0].TxHash, entries[1].TxHash)
}

func TestBuyDeclineMakesNoMutation(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(bob, "https://example.com/b.json", ether("0.5"))

	h.run(t, rootMarketplace+marketBuy+id.String()+"\n"+"\n"+marketBack+rootExit)

	assert.Empty(t, h.fake.Submitted())
	owner, err := h.fake.OwnerOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	assert.Contains(t, h.out.String(), "NFT #1 costs 0.5 ETH")
	assert.Contains(t, h.out.String(), "Operation cancelled.")
}

func TestBuyNotForSale(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(bob, "https://example.com/b.json", nil)

	h.run(t, rootMarketplace+marketBuy+id.String()+"\n"+marketBack+rootExit)

	assert.Contains(t, h.out.String(), "✖ NFT #1 is not for sale")
	assert.Empty(t, h.fake.Submitted())
}

func TestBuyConfirmed(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(bob, "https://example.com/b.json", ether("0.5"))

	h.run(t, rootMarketplace+marketBuy+"12a\n"+id.String()+"\ny\n"+marketBack+rootExit)

	assert.Contains(t, h.out.String(), "✖ invalid token ID")
	assert.Equal(t, []string{gateway.OpBuy}, h.fake.Submitted())
	owner, err := h.fake.OwnerOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	assert.Contains(t, h.out.String(), "✔ You bought NFT #1 for 0.5 ETH")
}

func TestListForSaleViewAndCancel(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(alice, "https://example.com/a.json", nil)

	h.run(t, rootMarketplace+
		marketList+"1\n"+"0.00\n"+"0.5\n"+
		marketView+
		marketCancel+"1\n"+
		marketBack+rootExit)

	out := h.out.String()
	assert.Contains(t, out, "✖ invalid price")
	assert.Contains(t, out, "✔ NFT #1 is for sale at 0.5 ETH")
	assert.Contains(t, out, "Price (ETH)")
	assert.Contains(t, out, "✔ NFT #1 is no longer for sale")
	assert.Equal(t, []string{gateway.OpSetPrice, gateway.OpCancelSale}, h.fake.Submitted())

	price, err := h.fake.PriceOf(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, price.Sign())
}

func TestListForSaleRejectsPriceBeyondUint256(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(alice, "https://example.com/a.json", nil)

	h.run(t, rootMarketplace+marketList+"1\n"+"1e200\n"+"2\n"+marketBack+rootExit)

	out := h.out.String()
	assert.Contains(t, out, "✖ invalid price")
	assert.NotContains(t, out, "for sale at 1e200")
	assert.Contains(t, out, "✔ NFT #1 is for sale at 2 ETH")
	assert.Equal(t, []string{gateway.OpSetPrice}, h.fake.Submitted())

	price, err := h.fake.PriceOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ether("2").String(), price.String())
}

func TestCancelSaleOfUnlistedToken(t *testing.T) {
	h := newHarness()
	h.fake.Seed(alice, "https://example.com/a.json", nil)

	h.run(t, rootMarketplace+marketCancel+"1\n"+marketBack+rootExit)

	assert.Contains(t, h.out.String(), "✖ NFT #1 is not for sale")
	assert.Empty(t, h.fake.Submitted())
}

func TestTransferRequiresOwnedToken(t *testing.T) {
	h := newHarness()
	h.run(t, rootPersonal+personalTransfer+personalBack+rootExit)

	assert.Contains(t, h.out.String(), "✖ You don't own any NFTs")
	assert.Empty(t, h.fake.Submitted())
}

func TestTransfer(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(alice, "https://example.com/a.json", nil)

	h.run(t, rootPersonal+personalTransfer+"1\n"+"not-an-address\n"+bob.Hex()+"\n"+personalBack+rootExit)

	assert.Contains(t, h.out.String(), "✖ invalid Ethereum address")
	owner, err := h.fake.OwnerOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
}

func TestFailureIsolation(t *testing.T) {
	h := newHarness()
	h.fake.FailConfirm(gateway.OpMint, errors.New("execution reverted: out of stock"))

	h.run(t, rootPersonal+
		personalMint+"https://example.com/1.json\n"+
		personalMint+"https://example.com/2.json\n"+
		personalBack+rootExit)

	out := h.out.String()
	assert.Contains(t, out, "✖ Transaction failed: execution reverted: out of stock")
	assert.Contains(t, out, "✔ NFT minted in block")
	assert.Equal(t, []string{gateway.OpMint, gateway.OpMint}, h.fake.Submitted())
	assert.Equal(t, "personal>root", h.steps[len(h.steps)-2])

	statuses := make([]string, 0)
	for _, e := range h.journal.Entries() {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []string{
		journal.StatusSubmitted, journal.StatusFailed,
		journal.StatusSubmitted, journal.StatusConfirmed,
	}, statuses)
}

func TestSubmissionFailureIsReported(t *testing.T) {
	h := newHarness()
	h.fake.FailSubmit(gateway.OpMint, errors.New("insufficient funds for gas * price + value"))

	h.run(t, rootPersonal+personalMint+"https://example.com/1.json\n"+personalBack+rootExit)

	assert.Equal(t, 1, strings.Count(h.out.String(), "insufficient funds"))
	entries := h.journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusFailed, entries[0].Status)
	assert.Empty(t, entries[0].TxHash)
}

func TestSingleTransactionInFlight(t *testing.T) {
	h := newHarness()
	h.fake.Seed(alice, "https://example.com/a.json", nil)

	h.run(t, rootPersonal+
		personalMint+"https://example.com/1.json\n"+
		personalMint+"https://example.com/2.json\n"+
		personalBack+rootMarketplace+
		marketList+"1\n0.1\n"+
		marketCancel+"1\n"+
		marketBack+rootExit)

	assert.Len(t, h.fake.Submitted(), 4)
	assert.Equal(t, 1, h.fake.MaxInFlight())
}

func TestReadFailuresKeepTheLoopAlive(t *testing.T) {
	h := newHarness()
	h.fake.FailReads(errors.New("429 Too Many Requests"))

	h.run(t, rootQueries+queryOwner+"1\n"+queryPrice+"1\n"+queryBack+rootExit)

	out := h.out.String()
	assert.Contains(t, out, "Could not fetch balance: 429 Too Many Requests")
	assert.Contains(t, out, "✖ NFT owner failed: 429 Too Many Requests")
	assert.Contains(t, out, "✖ NFT price failed: 429 Too Many Requests")
	assert.Equal(t, "root>terminated", h.steps[len(h.steps)-1])
}

func TestQueries(t *testing.T) {
	h := newHarness()
	id := h.fake.Seed(alice, "https://example.com/a.json", ether("2"))

	h.run(t, rootQueries+queryOwner+id.String()+"\n"+queryPrice+id.String()+"\n"+queryBalance+queryBack+rootExit)

	out := h.out.String()
	assert.Contains(t, out, "Owner of NFT #1: "+alice.Hex()+" (you)")
	assert.Contains(t, out, "NFT #1 costs 2 ETH")
	assert.Contains(t, out, "Balance of "+alice.Hex()+": 1 ETH")
}

func TestLowBalanceWarning(t *testing.T) {
	h := newHarness()
	h.fake.SetBalance(alice, ether("0.001"))

	h.run(t, rootExit)

	assert.Contains(t, h.out.String(), "Low balance: below 0.005 ETH")
}

type panickingGateway struct {
	*gateway.FakeClient
}

func (panickingGateway) TokensOfOwner(context.Context, common.Address) ([]*big.Int, error) {
	panic("boom")
}

func TestHandlerPanicIsContained(t *testing.T) {
	h := newHarness()
	c := h.console(panickingGateway{h.fake}, rootPersonal+personalList+personalBack+rootExit)

	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, h.out.String(), "✖ List my NFTs failed: unexpected error")
	assert.Equal(t, "root>terminated", h.steps[len(h.steps)-1])
}

func TestPendingActionLifecycle(t *testing.T) {
	pa := &PendingAction{Kind: ActionMint}
	pa.markConfirmed()
	assert.Equal(t, StatusValidated, pa.Status, "cannot confirm before submission")

	hash := common.HexToHash("0x01")
	pa.markSubmitted(hash)
	pa.markConfirmed()
	pa.markFailed(errors.New("late"))
	assert.Equal(t, StatusConfirmed, pa.Status)
	assert.Equal(t, hash, pa.TxHash)
	assert.NoError(t, pa.Err)
}
