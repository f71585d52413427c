package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"gotokenbridge/types"
)

// Host resolves token contracts and deploys new ones through a factory
// contract. It implements the bridge's token host.
type Host struct {
	client  *Client
	factory common.Address
}

func NewHost(client *Client, factory common.Address) *Host {
	return &Host{client: client, factory: factory}
}

func (h *Host) Token(addr common.Address) (types.Token, error) {
	return &Token{client: h.client, address: addr}, nil
}

func (h *Host) NewToken(
	ctx context.Context, name, symbol string, decimals uint8, initialSupply *big.Int, caps types.Capabilities,
) (common.Address, error) {
	if initialSupply == nil {
		initialSupply = new(big.Int)
	}

	receipt, err := h.client.transact(ctx, h.factory, factoryABI, h.client.deployGasLimit, "newToken",
		name, symbol, decimals, initialSupply, caps.Mintable, caps.Burnable)
	if err != nil {
		return common.Address{}, err
	}

	addr, err := createdToken(h.factory, receipt)
	if err != nil {
		return common.Address{}, err
	}
	h.client.logger.Info("token deployed", "token", addr, "symbol", symbol, "tx", receipt.TxHash)
	return addr, nil
}

// CustodyBalance reads the custody account's balance of token.
func (h *Host) CustodyBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	return WithClient(ctx, h.client, func(client *ethclient.Client) (*big.Int, error) {
		bound := bind.NewBoundContract(token, tokenABI, client, client, client)

		var out []interface{}
		err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", h.client.from)
		if err != nil {
			return nil, err
		}
		return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
	})
}

// Token drives one token contract as the custody account.
type Token struct {
	client  *Client
	address common.Address
}

func (t *Token) Address() common.Address { return t.address }

func (t *Token) Mint(ctx context.Context, amount *big.Int, recipient common.Address) error {
	_, err := t.client.transact(ctx, t.address, tokenABI, t.client.gasLimit, "mint", recipient, amount)
	return err
}

func (t *Token) Burn(ctx context.Context, amount *big.Int) error {
	_, err := t.client.transact(ctx, t.address, tokenABI, t.client.gasLimit, "burn", amount)
	return err
}

func (t *Token) Transfer(ctx context.Context, amount *big.Int, recipient common.Address) error {
	_, err := t.client.transact(ctx, t.address, tokenABI, t.client.gasLimit, "transfer", recipient, amount)
	return err
}
