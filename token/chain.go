// Package token is an in-process fungible token host: balances, supply and
// mint/burn capabilities for any number of tokens, plus the transfer
// callback the bridge relies on to learn about deposits.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/identity"
	"gotokenbridge/types"
)

var (
	ErrNoToken             = errors.New("no such token")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotMintable         = errors.New("token is not mintable")
	ErrNotBurnable         = errors.New("token is not burnable")
	ErrNotMinter           = errors.New("caller is not the minter")
)

// Receiver is notified when tokens arrive through TransferAndCall. An error
// makes the chain undo the transfer.
type Receiver interface {
	OnTokensReceived(
		ctx context.Context, token identity.Caller, operator, from string,
		amount *big.Int, toChain, toAddress string,
	) (uint64, error)
}

type ledgerToken struct {
	name     string
	symbol   string
	decimals uint8
	caps     types.Capabilities
	minter   common.Address
	supply   *big.Int
	balances map[common.Address]*big.Int
}

func (t *ledgerToken) balance(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (t *ledgerToken) move(from, to common.Address, amount *big.Int) error {
	fromBalance := t.balance(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance, amount)
	}
	t.balances[from] = new(big.Int).Sub(fromBalance, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	return nil
}

// Chain holds every token. custodian is the account the bridge acts as:
// Token() handles spend and mint from it, and tokens created through
// NewToken make it their minter.
type Chain struct {
	mu        sync.Mutex
	custodian common.Address
	deployed  uint64
	tokens    map[common.Address]*ledgerToken
	receivers map[common.Address]Receiver
	logger    hclog.Logger
}

func NewChain(custodian common.Address, logger hclog.Logger) *Chain {
	return &Chain{
		custodian: custodian,
		tokens:    map[common.Address]*ledgerToken{},
		receivers: map[common.Address]Receiver{},
		logger:    logger.Named("token_chain"),
	}
}

func (c *Chain) Custodian() common.Address { return c.custodian }

// SetReceiver registers the callback invoked when account receives tokens
// through TransferAndCall.
func (c *Chain) SetReceiver(account common.Address, r Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.receivers[account] = r
}

// Deploy creates a token with initialSupply credited to holder, who also
// becomes its minter. It stands in for tokens that already exist on chain.
func (c *Chain) Deploy(
	name, symbol string, decimals uint8, holder common.Address,
	initialSupply *big.Int, caps types.Capabilities,
) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deploy(name, symbol, decimals, holder, initialSupply, caps)
}

func (c *Chain) deploy(
	name, symbol string, decimals uint8, holder common.Address,
	initialSupply *big.Int, caps types.Capabilities,
) common.Address {
	addr := crypto.CreateAddress(c.custodian, c.deployed)
	c.deployed++

	supply := new(big.Int)
	if initialSupply != nil {
		supply.Set(initialSupply)
	}

	c.tokens[addr] = &ledgerToken{
		name:     name,
		symbol:   symbol,
		decimals: decimals,
		caps:     caps,
		minter:   holder,
		supply:   new(big.Int).Set(supply),
		balances: map[common.Address]*big.Int{holder: supply},
	}

	c.logger.Debug("token deployed", "token", addr, "symbol", symbol, "supply", supply)
	return addr
}

// NewToken deploys a token minted and governed by the custodian.
func (c *Chain) NewToken(
	_ context.Context, name, symbol string, decimals uint8,
	initialSupply *big.Int, caps types.Capabilities,
) (common.Address, error) {
	if initialSupply != nil && initialSupply.Sign() < 0 {
		return common.Address{}, fmt.Errorf("negative initial supply %s", initialSupply)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deploy(name, symbol, decimals, c.custodian, initialSupply, caps), nil
}

func (c *Chain) get(token common.Address) (*ledgerToken, error) {
	t, ok := c.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoToken, token.Hex())
	}
	return t, nil
}

func (c *Chain) BalanceOf(token, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(t.balance(account)), nil
}

func (c *Chain) Metadata(token common.Address) (name, symbol string, decimals uint8, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return "", "", 0, err
	}
	return t.name, t.symbol, t.decimals, nil
}

func (c *Chain) TotalSupply(token common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(t.supply), nil
}

func (c *Chain) Mint(token, caller, recipient common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return err
	}
	if !t.caps.Mintable {
		return ErrNotMintable
	}
	if caller != t.minter {
		return fmt.Errorf("%w: %s", ErrNotMinter, caller.Hex())
	}

	t.supply = new(big.Int).Add(t.supply, amount)
	t.balances[recipient] = new(big.Int).Add(t.balance(recipient), amount)
	return nil
}

func (c *Chain) Burn(token, holder common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return err
	}
	if !t.caps.Burnable {
		return ErrNotBurnable
	}

	balance := t.balance(holder)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, burning %s", ErrInsufficientBalance, holder.Hex(), balance, amount)
	}
	t.balances[holder] = new(big.Int).Sub(balance, amount)
	t.supply = new(big.Int).Sub(t.supply, amount)
	return nil
}

func (c *Chain) Transfer(token, from, to common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.get(token)
	if err != nil {
		return err
	}
	return t.move(from, to, amount)
}

// TransferAndCall moves amount from sender to recipient and, when the
// recipient has a Receiver, calls it with the token as the authenticated
// caller. A failing callback undoes the transfer and its error is returned.
func (c *Chain) TransferAndCall(
	ctx context.Context, token, from, to common.Address, amount *big.Int, toChain, toAddress string,
) (uint64, error) {
	if amount == nil || amount.Sign() < 0 {
		return 0, fmt.Errorf("invalid amount %v", amount)
	}

	c.mu.Lock()
	t, err := c.get(token)
	if err == nil {
		err = t.move(from, to, amount)
	}
	receiver := c.receivers[to]
	c.mu.Unlock()

	if err != nil || receiver == nil {
		return 0, err
	}

	// the receiver may call back into the chain, so no lock is held here
	id, err := receiver.OnTokensReceived(ctx, identity.Trusted(token), from.Hex(), from.Hex(),
		amount, toChain, toAddress)
	if err == nil {
		return id, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if revertErr := t.move(to, from, amount); revertErr != nil {
		c.logger.Error("cannot revert rejected transfer", "token", token, "from", from,
			"to", to, "amount", amount, "err", revertErr)
		return 0, errors.Join(err, revertErr)
	}
	c.logger.Debug("transfer reverted by receiver", "token", token, "from", from, "err", err)
	return 0, err
}

// Token returns a handle acting as the custodian on token.
func (c *Chain) Token(addr common.Address) (types.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.get(addr); err != nil {
		return nil, err
	}
	return &Handle{chain: c, token: addr}, nil
}

// Handle drives one token on behalf of the custodian.
type Handle struct {
	chain *Chain
	token common.Address
}

func (h *Handle) Address() common.Address { return h.token }

func (h *Handle) Mint(_ context.Context, amount *big.Int, recipient common.Address) error {
	return h.chain.Mint(h.token, h.chain.custodian, recipient, amount)
}

func (h *Handle) Burn(_ context.Context, amount *big.Int) error {
	return h.chain.Burn(h.token, h.chain.custodian, amount)
}

func (h *Handle) Transfer(_ context.Context, amount *big.Int, recipient common.Address) error {
	return h.chain.Transfer(h.token, h.chain.custodian, recipient, amount)
}

// CustodyBalance is the custodian's balance of token.
func (c *Chain) CustodyBalance(_ context.Context, token common.Address) (*big.Int, error) {
	return c.BalanceOf(token, c.custodian)
}
