package gateway

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FakeClient is an in-memory marketplace. Submissions are checked the way a
// node would during gas estimation and only take effect once confirmed. It
// backs the tests and the --simulate mode of the CLI.
type FakeClient struct {
	mu sync.Mutex

	caller   common.Address
	nextID   int64
	nonce    uint64
	block    uint64
	owners   map[string]common.Address
	uris     map[string]string
	prices   map[string]*big.Int
	balances map[common.Address]*big.Int

	submitted   []string
	reads       int
	inFlight    int
	maxInFlight int

	failSubmit  map[string]error
	failConfirm map[string]error
	failRead    error
}

// NewFakeClient creates a marketplace where caller holds balance wei.
func NewFakeClient(caller common.Address, balance *big.Int) *FakeClient {
	f := &FakeClient{
		caller:      caller,
		nextID:      1,
		block:       1,
		owners:      make(map[string]common.Address),
		uris:        make(map[string]string),
		prices:      make(map[string]*big.Int),
		balances:    make(map[common.Address]*big.Int),
		failSubmit:  make(map[string]error),
		failConfirm: make(map[string]error),
	}
	f.balances[caller] = cloneInt(balance)
	return f
}

// Caller is the account transactions are sent from.
func (f *FakeClient) Caller() common.Address { return f.caller }

// Seed creates a token directly, bypassing the transaction flow. A positive
// price lists it for sale.
func (f *FakeClient) Seed(owner common.Address, uri string, price *big.Int) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.mintLocked(owner, uri)
	if price != nil && price.Sign() > 0 {
		f.prices[id.String()] = cloneInt(price)
	}
	return id
}

func (f *FakeClient) SetBalance(account common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] = cloneInt(wei)
}

// FailSubmit makes the next submission of op fail with err.
func (f *FakeClient) FailSubmit(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSubmit[op] = err
}

// FailConfirm makes the next confirmation of op fail with err.
func (f *FakeClient) FailConfirm(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failConfirm[op] = err
}

// FailReads makes every read fail with err until called again with nil.
func (f *FakeClient) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = err
}

// Submitted lists the mutating operations that reached the gateway, in order.
func (f *FakeClient) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func (f *FakeClient) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// MaxInFlight is the highest number of submitted but unconfirmed transactions seen.
func (f *FakeClient) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *FakeClient) Mint(_ context.Context, owner common.Address, uri string) (TransactionHandle, error) {
	return f.submit(OpMint, func() error { return nil }, func() {
		f.mintLocked(owner, uri)
	})
}

func (f *FakeClient) Transfer(_ context.Context, from, to common.Address, tokenID *big.Int) (TransactionHandle, error) {
	id := tokenID.String()
	check := func() error {
		owner, ok := f.owners[id]
		if !ok {
			return errNonexistent(tokenID)
		}
		if owner != from || from != f.caller {
			return revert("caller is not token owner or approved")
		}
		if to == (common.Address{}) {
			return revert("transfer to the zero address")
		}
		return nil
	}
	return f.submit(OpTransfer, check, func() {
		f.owners[id] = to
		delete(f.prices, id)
	})
}

func (f *FakeClient) SetPrice(_ context.Context, tokenID, price *big.Int) (TransactionHandle, error) {
	id := tokenID.String()
	check := func() error {
		owner, ok := f.owners[id]
		if !ok {
			return errNonexistent(tokenID)
		}
		if owner != f.caller {
			return revert("only the owner can set the price")
		}
		if price.Sign() <= 0 {
			return revert("price must be greater than zero")
		}
		return nil
	}
	return f.submit(OpSetPrice, check, func() {
		f.prices[id] = cloneInt(price)
	})
}

func (f *FakeClient) CancelSale(_ context.Context, tokenID *big.Int) (TransactionHandle, error) {
	id := tokenID.String()
	check := func() error {
		owner, ok := f.owners[id]
		if !ok {
			return errNonexistent(tokenID)
		}
		if owner != f.caller {
			return revert("only the owner can cancel the sale")
		}
		if _, listed := f.prices[id]; !listed {
			return revert("token is not for sale")
		}
		return nil
	}
	return f.submit(OpCancelSale, check, func() {
		delete(f.prices, id)
	})
}

func (f *FakeClient) Buy(_ context.Context, tokenID, payment *big.Int) (TransactionHandle, error) {
	id := tokenID.String()
	check := func() error {
		owner, ok := f.owners[id]
		if !ok {
			return errNonexistent(tokenID)
		}
		price, listed := f.prices[id]
		if !listed {
			return revert("token is not for sale")
		}
		if owner == f.caller {
			return revert("cannot buy your own token")
		}
		if payment == nil || payment.Cmp(price) != 0 {
			return revert("incorrect payment amount")
		}
		if f.balanceLocked(f.caller).Cmp(payment) < 0 {
			return errors.New("insufficient funds for gas * price + value")
		}
		return nil
	}
	return f.submit(OpBuy, check, func() {
		seller := f.owners[id]
		f.balances[f.caller] = new(big.Int).Sub(f.balanceLocked(f.caller), payment)
		f.balances[seller] = new(big.Int).Add(f.balanceLocked(seller), payment)
		f.owners[id] = f.caller
		delete(f.prices, id)
	})
}

func (f *FakeClient) OwnerOf(_ context.Context, tokenID *big.Int) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return common.Address{}, err
	}
	owner, ok := f.owners[tokenID.String()]
	if !ok {
		return common.Address{}, errNonexistent(tokenID)
	}
	return owner, nil
}

func (f *FakeClient) TokensOfOwner(_ context.Context, owner common.Address) ([]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return nil, err
	}
	var out []*big.Int
	for id, o := range f.owners {
		if o == owner {
			out = append(out, parseID(id))
		}
	}
	sortIDs(out)
	return out, nil
}

func (f *FakeClient) ListedTokens(_ context.Context) ([]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return nil, err
	}
	out := make([]*big.Int, 0, len(f.prices))
	for id := range f.prices {
		out = append(out, parseID(id))
	}
	sortIDs(out)
	return out, nil
}

// PriceOf returns zero for tokens that are not listed, like the contract mapping.
func (f *FakeClient) PriceOf(_ context.Context, tokenID *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return nil, err
	}
	if p, ok := f.prices[tokenID.String()]; ok {
		return cloneInt(p), nil
	}
	return new(big.Int), nil
}

func (f *FakeClient) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return nil, err
	}
	return cloneInt(f.balanceLocked(account)), nil
}

func (f *FakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failRead
}

func (f *FakeClient) submit(op string, check func() error, apply func()) (TransactionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, op)
	if err, ok := f.failSubmit[op]; ok {
		delete(f.failSubmit, op)
		return nil, fmt.Errorf("%s tx: %w", op, err)
	}
	if err := check(); err != nil {
		return nil, fmt.Errorf("%s tx: %w", op, err)
	}

	f.nonce++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	return &fakeHandle{
		client: f,
		op:     op,
		hash:   fakeHash(fmt.Sprintf("%s:%s:%d", f.caller.Hex(), op, f.nonce)),
		check:  check,
		apply:  apply,
	}, nil
}

type fakeHandle struct {
	client *FakeClient
	op     string
	hash   common.Hash
	check  func() error
	apply  func()

	once    sync.Once
	receipt *Receipt
	err     error
}

func (h *fakeHandle) Hash() common.Hash { return h.hash }

func (h *fakeHandle) Confirm(ctx context.Context) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.once.Do(func() {
		f := h.client
		f.mu.Lock()
		defer f.mu.Unlock()
		f.inFlight--

		if err, ok := f.failConfirm[h.op]; ok {
			delete(f.failConfirm, h.op)
			h.err = err
			return
		}
		// state may have moved since submission
		if err := h.check(); err != nil {
			h.err = fmt.Errorf("%w: %s: %v", ErrReverted, h.hash.Hex(), err)
			return
		}
		h.apply()
		f.block++
		h.receipt = &Receipt{TxHash: h.hash, BlockNumber: f.block, GasUsed: 21000}
	})
	return h.receipt, h.err
}

func (f *FakeClient) mintLocked(owner common.Address, uri string) *big.Int {
	id := big.NewInt(f.nextID)
	f.nextID++
	f.owners[id.String()] = owner
	f.uris[id.String()] = uri
	return id
}

func (f *FakeClient) balanceLocked(account common.Address) *big.Int {
	if b, ok := f.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (f *FakeClient) readLocked() error {
	f.reads++
	return f.failRead
}

func revert(reason string) error {
	return fmt.Errorf("execution reverted: %s", reason)
}

func errNonexistent(tokenID *big.Int) error {
	return revert(fmt.Sprintf("ERC721NonexistentToken(%s)", tokenID))
}

func fakeHash(input string) common.Hash {
	sum := sha256.Sum256([]byte(input))
	return common.BytesToHash(sum[:])
}

func parseID(s string) *big.Int {
	id, _ := new(big.Int).SetString(s, 10)
	return id
}

func sortIDs(ids []*big.Int) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
