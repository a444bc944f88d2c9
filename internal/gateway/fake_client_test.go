package gateway

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestFakeMintAppliesOnConfirm(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient(alice, ether(1))

	h, err := fake.Mint(ctx, alice, "https://example.com/1.json")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokens, _ := fake.TokensOfOwner(ctx, alice); len(tokens) != 0 {
		t.Fatalf("token visible before confirmation: %v", tokens)
	}

	receipt, err := h.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if receipt.TxHash != h.Hash() {
		t.Fatalf("receipt hash %s != handle hash %s", receipt.TxHash.Hex(), h.Hash().Hex())
	}

	tokens, _ := fake.TokensOfOwner(ctx, alice)
	if len(tokens) != 1 || tokens[0].Int64() != 1 {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	if again, err := h.Confirm(ctx); err != nil || again != receipt {
		t.Fatalf("second confirm should return the same receipt")
	}
	if tokens, _ := fake.TokensOfOwner(ctx, alice); len(tokens) != 1 {
		t.Fatalf("second confirm applied twice: %v", tokens)
	}
}

func TestFakeBuyMovesTokenAndFunds(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient(alice, ether(2))
	id := fake.Seed(bob, "https://example.com/b.json", ether(1))

	if _, err := fake.Buy(ctx, id, big.NewInt(1)); err == nil || !strings.Contains(err.Error(), "incorrect payment") {
		t.Fatalf("expected payment mismatch, got %v", err)
	}

	h, err := fake.Buy(ctx, id, ether(1))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := h.Confirm(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	owner, _ := fake.OwnerOf(ctx, id)
	if owner != alice {
		t.Fatalf("owner = %s, want alice", owner.Hex())
	}
	price, _ := fake.PriceOf(ctx, id)
	if price.Sign() != 0 {
		t.Fatalf("token still priced at %s", price)
	}
	if bal, _ := fake.BalanceOf(ctx, bob); bal.Cmp(ether(1)) != 0 {
		t.Fatalf("seller balance = %s", bal)
	}
	if listed, _ := fake.ListedTokens(ctx); len(listed) != 0 {
		t.Fatalf("token still listed: %v", listed)
	}
}

func TestFakeRejectsAtSubmission(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient(alice, ether(1))
	mine := fake.Seed(alice, "https://example.com/a.json", nil)
	theirs := fake.Seed(bob, "https://example.com/b.json", nil)

	cases := []struct {
		name string
		run  func() error
		want string
	}{
		{"buy unlisted", func() error { _, err := fake.Buy(ctx, theirs, ether(1)); return err }, "not for sale"},
		{"cancel unlisted", func() error { _, err := fake.CancelSale(ctx, mine); return err }, "not for sale"},
		{"price foreign token", func() error { _, err := fake.SetPrice(ctx, theirs, ether(1)); return err }, "only the owner"},
		{"transfer foreign token", func() error { _, err := fake.Transfer(ctx, alice, bob, theirs); return err }, "not token owner"},
		{"transfer missing token", func() error { _, err := fake.Transfer(ctx, alice, bob, big.NewInt(99)); return err }, "ERC721NonexistentToken(99)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFakeInjectedFailures(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient(alice, ether(1))
	boom := errors.New("nonce too low")

	fake.FailSubmit(OpMint, boom)
	if _, err := fake.Mint(ctx, alice, "https://x"); !errors.Is(err, boom) {
		t.Fatalf("expected injected submit error, got %v", err)
	}

	fake.FailConfirm(OpMint, boom)
	h, err := fake.Mint(ctx, alice, "https://x")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := h.Confirm(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected injected confirm error, got %v", err)
	}
	if tokens, _ := fake.TokensOfOwner(ctx, alice); len(tokens) != 0 {
		t.Fatalf("failed confirmation must not mutate: %v", tokens)
	}

	fake.FailReads(boom)
	if _, err := fake.ListedTokens(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected read failure, got %v", err)
	}
	if got := fake.Submitted(); len(got) != 2 {
		t.Fatalf("submitted = %v", got)
	}
}

func TestFakeRevertWhenStateMovedBeforeConfirm(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient(alice, ether(1))
	id := fake.Seed(alice, "https://example.com/a.json", ether(1))

	cancel, err := fake.CancelSale(ctx, id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	transfer, err := fake.Transfer(ctx, alice, bob, id)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if fake.MaxInFlight() != 2 {
		t.Fatalf("max in flight = %d", fake.MaxInFlight())
	}

	if _, err := transfer.Confirm(ctx); err != nil {
		t.Fatalf("confirm transfer: %v", err)
	}
	if _, err := cancel.Confirm(ctx); !errors.Is(err, ErrReverted) {
		t.Fatalf("expected revert, got %v", err)
	}
}

func TestFakeConfirmHonoursContext(t *testing.T) {
	fake := NewFakeClient(alice, ether(1))
	h, err := fake.Mint(context.Background(), alice, "https://x")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Confirm(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
