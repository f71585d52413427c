package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenKind records where the canonical supply of a registered token lives.
type TokenKind int

const (
	// NativeHere tokens originate on this chain. They leave by being locked
	// in bridge custody and come back by being released from it.
	NativeHere TokenKind = iota + 1
	// MintedHere tokens represent an asset held on the remote chain. They
	// arrive by mint and leave by burn.
	MintedHere
)

func (k TokenKind) String() string {
	switch k {
	case NativeHere:
		return "native_here"
	case MintedHere:
		return "minted_here"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k TokenKind) MarshalText() ([]byte, error) {
	switch k {
	case NativeHere, MintedHere:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("invalid token kind %d", int(k))
	}
}

func (k *TokenKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "native_here":
		*k = NativeHere
	case "minted_here":
		*k = MintedHere
	default:
		return fmt.Errorf("invalid token kind %q", string(b))
	}
	return nil
}

// SwapOutKind is the custody action applied when value leaves this chain.
type SwapOutKind string

const (
	SwapOutBurn     SwapOutKind = "burn"
	SwapOutTransfer SwapOutKind = "transfer"
)

// SwapOutKindFor maps a provenance tag to the custody action it requires.
func SwapOutKindFor(kind TokenKind) (SwapOutKind, error) {
	switch kind {
	case MintedHere:
		return SwapOutBurn, nil
	case NativeHere:
		return SwapOutTransfer, nil
	default:
		return "", fmt.Errorf("no custody action for token kind %s", kind)
	}
}

// TokenInfo is a token registry entry, immutable once written
type TokenInfo struct {
	Address      common.Address `json:"address"`
	Kind         TokenKind      `json:"kind"`
	Name         string         `json:"name,omitempty"`
	Symbol       string         `json:"symbol,omitempty"`
	Decimals     uint8          `json:"decimals,omitempty"`
	RegisteredAt int64          `json:"registeredAt"`
}

// SwapOutRecord is one entry of the append-only swap-out ledger.
// IDs start at 1 and have no gaps.
type SwapOutRecord struct {
	ID        uint64         `json:"id"`
	Kind      SwapOutKind    `json:"kind"`
	Token     common.Address `json:"token"`
	Amount    *big.Int       `json:"amount"` // in token base units
	From      common.Address `json:"from"`
	ToChain   string         `json:"toChain"`
	ToAddress string         `json:"toAddress"` // destination chain format, opaque here
	CreatedAt int64          `json:"createdAt"`
}

// Address book binds a source address on this chain to the destination
// its deposits are forwarded to.
type AddressBookRecord struct {
	ID            string         `json:"id"`
	SourceAddress common.Address `json:"sourceAddress"`
	DestChain     string         `json:"destChain"`
	DestAddress   string         `json:"destAddress"`
	TsCreated     int64          `json:"tsCreated"`
}

const (
	IngressDelivered = "delivered"
	IngressFailed    = "failed"
)

// Ingress is a token transfer into bridge custody observed by the scanner
// and its delivery outcome.
type Ingress struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Token     common.Address `json:"token"`
	TxHash    string         `json:"txHash"`
	LogIndex  uint           `json:"logIndex"`
	From      common.Address `json:"from"`
	Amount    string         `json:"amount"`
	ToChain   string         `json:"toChain,omitempty"`
	ToAddress string         `json:"toAddress,omitempty"`
	SwapOutID uint64         `json:"swapOutId,omitempty"`
	TsFound   int64          `json:"tsFound"`
	Message   string         `json:"message,omitempty"` // why delivery failed
}

// Event is an entry of the bridge event log. Payload holds one of the
// *Event structs below, encoded as JSON.
type Event struct {
	Seq     uint64          `json:"seq"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

const (
	EventSwapInMint     = "swapin_mint"
	EventSwapInTransfer = "swapin_transfer"
	EventSwapOut        = "swapout"
	EventTokensReceived = "tokens_received"
)

// field order of the payload structs is what relayers parse, keep it
type SwapInMintEvent struct {
	Token     common.Address `json:"token"`
	Amount    *big.Int       `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

func (SwapInMintEvent) EventName() string { return EventSwapInMint }

type SwapInTransferEvent struct {
	Token     common.Address `json:"token"`
	Amount    *big.Int       `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

func (SwapInTransferEvent) EventName() string { return EventSwapInTransfer }

type SwapOutEvent struct {
	Kind      SwapOutKind    `json:"kind"`
	ID        uint64         `json:"id"`
	Token     common.Address `json:"token"`
	Amount    *big.Int       `json:"amount"`
	From      common.Address `json:"from"`
	ToChain   string         `json:"to_chain"`
	ToAddress string         `json:"to_address"`
}

func (SwapOutEvent) EventName() string { return EventSwapOut }

type TokensReceivedEvent struct {
	Token     common.Address `json:"token"`
	From      common.Address `json:"from"`
	Amount    *big.Int       `json:"amount"`
	ToChain   string         `json:"to_chain"`
	ToAddress string         `json:"to_address"`
}

func (TokensReceivedEvent) EventName() string { return EventTokensReceived }

// Capabilities a token factory configures on a new token.
type Capabilities struct {
	Mintable bool `json:"mintable"`
	Burnable bool `json:"burnable"`
}
