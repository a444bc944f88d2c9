package console

import (
	"context"
	"fmt"
	"math/big"

	"github.com/javi2610/CIAD-P2/internal/gateway"
	"github.com/javi2610/CIAD-P2/internal/money"
	"github.com/javi2610/CIAD-P2/internal/validate"
)

func (c *Console) mint(ctx context.Context) error {
	uri, err := ask(c, "Metadata URL (https://...)", validate.ParseURI)
	if err != nil {
		return err
	}

	return c.submit(ctx, submission{
		action:   ActionMint,
		progress: "Minting NFT",
		send: func(ctx context.Context) (gateway.TransactionHandle, error) {
			return c.gw.Mint(ctx, c.session.Address, uri)
		},
		success: func(r *gateway.Receipt) string {
			return fmt.Sprintf("NFT minted in block %d", r.BlockNumber)
		},
	})
}

func (c *Console) transfer(ctx context.Context) error {
	id, err := c.selectOwnedToken(ctx, "Select the NFT to transfer")
	if err != nil {
		return err
	}
	to, err := ask(c, "Recipient address", validate.ParseAddress)
	if err != nil {
		return err
	}
	if to == c.session.Address {
		return precondition("You already own NFT #%s", id)
	}

	return c.submit(ctx, submission{
		action:   ActionTransfer,
		tokenID:  id,
		progress: fmt.Sprintf("Transferring NFT #%s to %s", id, to.Hex()),
		send: func(ctx context.Context) (gateway.TransactionHandle, error) {
			return c.gw.Transfer(ctx, c.session.Address, to, id)
		},
		success: func(*gateway.Receipt) string {
			return fmt.Sprintf("NFT #%s transferred to %s", id, to.Hex())
		},
	})
}

func (c *Console) listMine(ctx context.Context) error {
	tokens, err := c.gw.TokensOfOwner(ctx, c.session.Address)
	if err != nil {
		return remote("tokensOfOwner", err)
	}
	if len(tokens) == 0 {
		c.ui.Info("You don't own any NFTs yet.")
		return nil
	}

	rows := make([][]string, 0, len(tokens))
	for _, id := range tokens {
		rows = append(rows, []string{id.String()})
	}
	c.ui.Table([]string{"Token ID"}, rows)
	return nil
}

func (c *Console) listForSale(ctx context.Context) error {
	id, err := c.selectOwnedToken(ctx, "Select the NFT to sell")
	if err != nil {
		return err
	}
	price, err := ask(c, "Price in ETH", validate.ParsePrice)
	if err != nil {
		return err
	}
	wei, err := money.ToWei(price)
	if err != nil {
		return err
	}

	return c.submit(ctx, submission{
		action:   ActionListForSale,
		tokenID:  id,
		progress: fmt.Sprintf("Listing NFT #%s for %s ETH", id, price),
		send: func(ctx context.Context) (gateway.TransactionHandle, error) {
			return c.gw.SetPrice(ctx, id, wei)
		},
		success: func(*gateway.Receipt) string {
			return fmt.Sprintf("NFT #%s is for sale at %s ETH", id, price)
		},
	})
}

func (c *Console) cancelSale(ctx context.Context) error {
	id, err := c.selectOwnedToken(ctx, "Select the NFT to withdraw from sale")
	if err != nil {
		return err
	}
	price, err := c.gw.PriceOf(ctx, id)
	if err != nil {
		return remote("priceOf", err)
	}
	if price.Sign() == 0 {
		return precondition("NFT #%s is not for sale", id)
	}

	return c.submit(ctx, submission{
		action:   ActionCancelSale,
		tokenID:  id,
		progress: fmt.Sprintf("Cancelling sale of NFT #%s", id),
		send: func(ctx context.Context) (gateway.TransactionHandle, error) {
			return c.gw.CancelSale(ctx, id)
		},
		success: func(*gateway.Receipt) string {
			return fmt.Sprintf("NFT #%s is no longer for sale", id)
		},
	})
}

func (c *Console) buy(ctx context.Context) error {
	id, err := ask(c, "Token ID to buy", validate.ParseTokenID)
	if err != nil {
		return err
	}
	price, err := c.gw.PriceOf(ctx, id)
	if err != nil {
		return remote("priceOf", err)
	}
	if price.Sign() == 0 {
		return precondition("NFT #%s is not for sale", id)
	}

	eth := money.FormatEther(price)
	c.ui.Info(fmt.Sprintf("NFT #%s costs %s ETH", id, eth))
	ok, err := c.ui.Confirm(fmt.Sprintf("Buy NFT #%s for %s ETH?", id, eth), false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}

	return c.submit(ctx, submission{
		action:   ActionBuy,
		tokenID:  id,
		progress: fmt.Sprintf("Buying NFT #%s", id),
		send: func(ctx context.Context) (gateway.TransactionHandle, error) {
			return c.gw.Buy(ctx, id, price)
		},
		success: func(*gateway.Receipt) string {
			return fmt.Sprintf("You bought NFT #%s for %s ETH", id, eth)
		},
	})
}

func (c *Console) viewListed(ctx context.Context) error {
	tokens, err := c.gw.ListedTokens(ctx)
	if err != nil {
		return remote("listedTokens", err)
	}
	if len(tokens) == 0 {
		c.ui.Info("No NFTs are for sale right now.")
		return nil
	}

	rows := make([][]string, 0, len(tokens))
	for _, id := range tokens {
		price, err := c.gw.PriceOf(ctx, id)
		if err != nil {
			return remote("priceOf", err)
		}
		rows = append(rows, []string{id.String(), money.FormatEther(price)})
	}
	c.ui.Table([]string{"Token ID", "Price (ETH)"}, rows)
	return nil
}

func (c *Console) queryOwner(ctx context.Context) error {
	id, err := ask(c, "Token ID", validate.ParseTokenID)
	if err != nil {
		return err
	}
	owner, err := c.gw.OwnerOf(ctx, id)
	if err != nil {
		return remote("ownerOf", err)
	}

	msg := fmt.Sprintf("Owner of NFT #%s: %s", id, owner.Hex())
	if owner == c.session.Address {
		msg += " (you)"
	}
	c.ui.Info(msg)
	return nil
}

func (c *Console) queryPrice(ctx context.Context) error {
	id, err := ask(c, "Token ID", validate.ParseTokenID)
	if err != nil {
		return err
	}
	price, err := c.gw.PriceOf(ctx, id)
	if err != nil {
		return remote("priceOf", err)
	}
	if price.Sign() == 0 {
		c.ui.Info(fmt.Sprintf("NFT #%s is not for sale", id))
		return nil
	}
	c.ui.Info(fmt.Sprintf("NFT #%s costs %s ETH", id, money.FormatEther(price)))
	return nil
}

func (c *Console) queryBalance(ctx context.Context) error {
	bal, err := c.gw.BalanceOf(ctx, c.session.Address)
	if err != nil {
		return remote("balance", err)
	}
	c.metrics.SetBalance(money.FromWei(bal).InexactFloat64())
	c.ui.Info(fmt.Sprintf("Balance of %s: %s ETH", c.session.Address.Hex(), money.FormatEther(bal)))
	return nil
}

// selectOwnedToken lets the user pick one of their tokens. Owning none is a
// precondition failure.
func (c *Console) selectOwnedToken(ctx context.Context, title string) (*big.Int, error) {
	tokens, err := c.gw.TokensOfOwner(ctx, c.session.Address)
	if err != nil {
		return nil, remote("tokensOfOwner", err)
	}
	if len(tokens) == 0 {
		return nil, precondition("You don't own any NFTs")
	}

	labels := make([]string, len(tokens))
	for i, id := range tokens {
		labels[i] = fmt.Sprintf("NFT #%s", id)
	}
	idx, err := c.ui.Select(title, labels)
	if err != nil {
		return nil, err
	}
	return tokens[idx], nil
}
