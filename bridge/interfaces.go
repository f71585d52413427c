package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"gotokenbridge/storage"
	"gotokenbridge/types"
)

// Token is the fungible token contract the bridge holds custody on, the
// bridge being the custodian.
type Token = types.Token

type TokenResolver interface {
	Token(addr common.Address) (Token, error)
}

// TokenFactory deploys new fungible token contracts.
type TokenFactory interface {
	NewToken(
		ctx context.Context, name, symbol string, decimals uint8,
		initialSupply *big.Int, caps types.Capabilities,
	) (common.Address, error)
}

// TokenHost is the chain side the bridge drives: it resolves registered
// tokens and deploys new ones.
type TokenHost interface {
	TokenResolver
	TokenFactory
}

// Publisher forwards committed events to observers. The persisted event log
// stays authoritative; publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev types.Event) error
}

// Receipt stages a delivery record in the transaction that records a
// swap-out, before the custody action runs. swapOutID is 0 when the ledger
// is disabled. An error aborts the whole operation.
type Receipt func(tx storage.Tx, swapOutID uint64) error
