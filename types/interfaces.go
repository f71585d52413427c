package types

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a fungible token contract as seen by its custodian. Every call
// acts as the custodian: Burn and Transfer spend the custodian's balance and
// Mint needs the custodian to be the token's minter.
type Token interface {
	Mint(ctx context.Context, amount *big.Int, recipient common.Address) error
	Burn(ctx context.Context, amount *big.Int) error
	Transfer(ctx context.Context, amount *big.Int, recipient common.Address) error
}
