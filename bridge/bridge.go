// Package bridge is the authoritative state machine of the token bridge:
// owner and pause gating, the token registry and the swap-out ledger.
//
// Every public operation runs under one mutex and stages its writes in a
// single storage transaction, so an operation either commits all of its
// state and events or none of them. Calls into the token host happen
// inside that transaction as the last step.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/identity"
	"gotokenbridge/storage"
	"gotokenbridge/telemetry"
	"gotokenbridge/types"
	"gotokenbridge/validate"
)

type Options struct {
	// DisableLedger drops the queryable swap-out ledger. Incoming transfers
	// then only emit tokens_received and allocate no id.
	DisableLedger bool
	// Now stamps records; defaults to time.Now.
	Now func() time.Time
}

// State is a snapshot of the bridge's administrative state.
type State struct {
	Owner         common.Address `json:"owner"`
	Paused        bool           `json:"paused"`
	LastSwapOutID uint64         `json:"lastSwapOutId"`
	LedgerEnabled bool           `json:"ledgerEnabled"`
}

type Bridge struct {
	mu        sync.Mutex
	store     storage.Store
	tokens    TokenHost
	publisher Publisher
	opts      Options
	logger    hclog.Logger

	access   accessControl
	registry registry
	ledger   ledger
	events   eventLog
}

// New opens the bridge over store. On an empty store the deployer becomes
// the owner; otherwise the persisted state is resumed as is.
func New(
	store storage.Store, tokens TokenHost, publisher Publisher,
	deployer identity.Caller, opts Options, logger hclog.Logger,
) (*Bridge, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &Bridge{
		store:     store,
		tokens:    tokens,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("bridge"),
	}

	created := false
	err := store.Update(func(tx storage.Tx) error {
		_, err := tx.Get(ownerKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		created = true
		if err := b.access.setOwner(tx, deployer.Address()); err != nil {
			return err
		}
		if err := b.access.setPaused(tx, false); err != nil {
			return err
		}
		return setUint(tx, lastSwapOutKey, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot initialize bridge state: %w", err)
	}

	state, err := b.State()
	if err != nil {
		return nil, err
	}
	b.logger.Info("bridge state loaded", "created", created, "owner", state.Owner,
		"paused", state.Paused, "lastSwapOutId", state.LastSwapOutID)

	return b, nil
}

// txn is the per-operation view of a storage transaction. It collects the
// events to publish after commit.
type txn struct {
	storage.Tx
	events      []types.Event
	custodyDone bool
}

func (b *Bridge) update(ctx context.Context, op string, fn func(t *txn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var t *txn
	err := b.store.Update(func(tx storage.Tx) error {
		t = &txn{Tx: tx}
		return fn(t)
	})
	if err != nil {
		if t != nil && t.custodyDone {
			b.logger.Error("custody action executed but state commit failed, reconcile manually",
				"op", op, "err", err)
		}
		reason := "internal"
		if kind := types.ErrorKind(err); kind != nil {
			reason = kind.Error()
		}
		telemetry.IncrRejected(op, reason)
		b.logger.Debug("operation rejected", "op", op, "err", err)
		return err
	}

	for _, ev := range t.events {
		b.publish(ctx, ev)
	}
	return nil
}

func (b *Bridge) emit(t *txn, payload eventPayload) error {
	ev, err := b.events.append(t, payload)
	if err != nil {
		return err
	}
	t.events = append(t.events, ev)
	return nil
}

func (b *Bridge) publish(ctx context.Context, ev types.Event) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, ev); err != nil {
		b.logger.Warn("cannot publish event", "seq", ev.Seq, "event", ev.Name, "err", err)
	}
}

func (b *Bridge) read(fn func(r storage.Reader) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return fn(b.store)
}

// SetOwner hands ownership to newOwner. It works while paused so a
// compromised or lost operator key can be replaced.
func (b *Bridge) SetOwner(ctx context.Context, caller identity.Caller, newOwner string) error {
	return b.update(ctx, "set_owner", func(t *txn) error {
		if err := b.access.requireOwner(t, caller); err != nil {
			return err
		}
		addr, err := validate.CheckAddress(newOwner)
		if err != nil {
			return err
		}
		if err := b.access.setOwner(t, addr); err != nil {
			return err
		}
		b.logger.Info("ownership transferred", "from", caller, "to", addr)
		return nil
	})
}

// Pause blocks every mutating operation except SetOwner, Pause and Unpause.
// Pausing a paused bridge is a no-op.
func (b *Bridge) Pause(ctx context.Context, caller identity.Caller) error {
	return b.setPaused(ctx, caller, true)
}

// Unpause reverses Pause. Unpausing an active bridge is a no-op.
func (b *Bridge) Unpause(ctx context.Context, caller identity.Caller) error {
	return b.setPaused(ctx, caller, false)
}

func (b *Bridge) setPaused(ctx context.Context, caller identity.Caller, paused bool) error {
	op := "unpause"
	if paused {
		op = "pause"
	}
	return b.update(ctx, op, func(t *txn) error {
		if err := b.access.requireOwner(t, caller); err != nil {
			return err
		}
		if err := b.access.setPaused(t, paused); err != nil {
			return err
		}
		b.logger.Info("pause flag set", "paused", paused, "by", caller)
		return nil
	})
}

// RegisterNative adds an existing token of this chain to the registry.
func (b *Bridge) RegisterNative(ctx context.Context, caller identity.Caller, token string) error {
	return b.update(ctx, "register_native", func(t *txn) error {
		if err := b.guardOwner(t, caller); err != nil {
			return err
		}
		addr, err := validate.CheckAddress(token)
		if err != nil {
			return err
		}
		err = b.registry.insert(t, types.TokenInfo{
			Address:      addr,
			Kind:         types.NativeHere,
			RegisteredAt: b.opts.Now().Unix(),
		})
		if err != nil {
			return err
		}
		b.logger.Info("native token registered", "token", addr)
		return nil
	})
}

// RegisterMinted deploys a new mintable and burnable representation token
// through the token factory and registers it. It is the only way new token
// identities come into existence.
func (b *Bridge) RegisterMinted(
	ctx context.Context, caller identity.Caller, name, symbol string, decimals uint8,
) (common.Address, error) {
	var addr common.Address
	err := b.update(ctx, "register_minted", func(t *txn) error {
		if err := b.guardOwner(t, caller); err != nil {
			return err
		}

		deployed, err := b.tokens.NewToken(ctx, name, symbol, decimals, big.NewInt(0),
			types.Capabilities{Mintable: true, Burnable: true})
		if err != nil {
			return fmt.Errorf("token factory failed: %w", err)
		}

		err = b.registry.insert(t, types.TokenInfo{
			Address:      deployed,
			Kind:         types.MintedHere,
			Name:         name,
			Symbol:       symbol,
			Decimals:     decimals,
			RegisteredAt: b.opts.Now().Unix(),
		})
		if err != nil {
			b.logger.Error("deployed token cannot be registered", "token", deployed, "err", err)
			return err
		}

		addr = deployed
		b.logger.Info("minted token registered", "token", deployed, "name", name, "symbol", symbol)
		return nil
	})
	if err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// SwapInMint credits recipient with freshly minted representation tokens
// for value locked on the remote chain.
func (b *Bridge) SwapInMint(
	ctx context.Context, caller identity.Caller, token string, amount *big.Int, recipient string,
) error {
	return b.swapIn(ctx, caller, types.MintedHere, token, amount, recipient)
}

// SwapInRelease sends native tokens out of bridge custody to recipient for
// representation tokens burned on the remote chain.
func (b *Bridge) SwapInRelease(
	ctx context.Context, caller identity.Caller, token string, amount *big.Int, recipient string,
) error {
	return b.swapIn(ctx, caller, types.NativeHere, token, amount, recipient)
}

func (b *Bridge) swapIn(
	ctx context.Context, caller identity.Caller, want types.TokenKind,
	token string, amount *big.Int, recipient string,
) error {
	op := "swapin_mint"
	if want == types.NativeHere {
		op = "swapin_transfer"
	}

	return b.update(ctx, op, func(t *txn) error {
		if err := b.guardOwner(t, caller); err != nil {
			return err
		}

		tokenAddr, err := validate.CheckAddress(token)
		if err != nil {
			return err
		}
		info, ok, err := b.registry.lookup(t, tokenAddr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: token %s is not registered", types.ErrUnsupportedToken, tokenAddr.Hex())
		}
		if info.Kind != want {
			return fmt.Errorf("%w: token %s is %s, %s needs %s",
				types.ErrUnsupportedToken, tokenAddr.Hex(), info.Kind, op, want)
		}

		to, err := validate.CheckAddress(recipient)
		if err != nil {
			return err
		}
		if err := validate.CheckAmount(amount); err != nil {
			return err
		}

		tok, err := b.tokens.Token(tokenAddr)
		if err != nil {
			return fmt.Errorf("cannot resolve token %s: %w", tokenAddr.Hex(), err)
		}

		amt := new(big.Int).Set(amount)
		switch want {
		case types.MintedHere:
			err = b.emit(t, types.SwapInMintEvent{Token: tokenAddr, Amount: amt, Recipient: to})
			if err == nil {
				err = tok.Mint(ctx, amt, to)
			}
		case types.NativeHere:
			err = b.emit(t, types.SwapInTransferEvent{Token: tokenAddr, Amount: amt, Recipient: to})
			if err == nil {
				err = tok.Transfer(ctx, amt, to)
			}
		}
		if err != nil {
			return err
		}
		t.custodyDone = true

		telemetry.IncrSwapIn(op)
		b.logger.Info("swap-in executed", "op", op, "token", tokenAddr, "amount", amt, "recipient", to)
		return nil
	})
}

// OnTokensReceived is called by a token contract after tokens were moved
// into bridge custody. tokenCaller identifies the token itself. Any error
// returned must make the token host revert the transfer, so tokens never
// sit in custody without a ledger entry.
//
// It returns the id of the new swap-out record, 0 when the ledger is
// disabled.
func (b *Bridge) OnTokensReceived(
	ctx context.Context, tokenCaller identity.Caller, operator, from string,
	amount *big.Int, toChain, toAddress string,
) (uint64, error) {
	return b.DeliverDeposit(ctx, tokenCaller, operator, from, amount, toChain, toAddress, nil)
}

// DeliverDeposit is OnTokensReceived for deposits observed after the fact.
// receipt, when set, commits together with the swap-out, so a deposit
// recorded by it is never delivered twice.
func (b *Bridge) DeliverDeposit(
	ctx context.Context, tokenCaller identity.Caller, operator, from string,
	amount *big.Int, toChain, toAddress string, receipt Receipt,
) (uint64, error) {
	var id uint64
	err := b.update(ctx, "swapout", func(t *txn) error {
		if err := b.access.requireNotPaused(t); err != nil {
			return err
		}

		sender, err := validate.CheckAddress(from)
		if err != nil {
			return err
		}
		if err := validate.CheckAmount(amount); err != nil {
			return err
		}
		// the destination belongs to the remote chain's address space and
		// is deliberately not checked against this chain's format
		if toChain == "" {
			return fmt.Errorf("%w: empty destination chain", types.ErrInvalidAddress)
		}
		if toAddress == "" {
			return fmt.Errorf("%w: empty destination address", types.ErrInvalidAddress)
		}

		token := tokenCaller.Address()

		if b.opts.DisableLedger {
			return b.receiveWithoutLedger(ctx, t, token, sender, amount, toChain, toAddress, receipt)
		}

		req := swapOutRequest{
			Token:     token,
			Amount:    amount,
			From:      sender,
			ToChain:   toChain,
			ToAddress: toAddress,
			CreatedAt: b.opts.Now().Unix(),
		}

		rec, err := b.ledger.recordAndExecute(ctx, t, b.registry, b.tokens, req,
			func(rec *types.SwapOutRecord) error {
				err := b.emit(t, types.SwapOutEvent{
					Kind:      rec.Kind,
					ID:        rec.ID,
					Token:     rec.Token,
					Amount:    rec.Amount,
					From:      rec.From,
					ToChain:   rec.ToChain,
					ToAddress: rec.ToAddress,
				})
				if err != nil || receipt == nil {
					return err
				}
				return receipt(t.Tx, rec.ID)
			})
		if err != nil {
			return err
		}
		t.custodyDone = true

		id = rec.ID
		telemetry.IncrSwapOut(string(rec.Kind))
		telemetry.SetLastSwapOutID(rec.ID)
		b.logger.Info("swap-out recorded", "id", rec.ID, "kind", rec.Kind, "token", token,
			"amount", rec.Amount, "from", sender, "operator", operator, "toChain", toChain, "toAddress", toAddress)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (b *Bridge) receiveWithoutLedger(
	ctx context.Context, t *txn, token, sender common.Address,
	amount *big.Int, toChain, toAddress string, receipt Receipt,
) error {
	info, ok, err := b.registry.lookup(t, token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: token %s is not registered", types.ErrUnsupportedToken, token.Hex())
	}

	err = b.emit(t, types.TokensReceivedEvent{
		Token:     token,
		From:      sender,
		Amount:    new(big.Int).Set(amount),
		ToChain:   toChain,
		ToAddress: toAddress,
	})
	if err != nil {
		return err
	}
	if receipt != nil {
		if err := receipt(t.Tx, 0); err != nil {
			return err
		}
	}

	if err := applySwapOutCustody(ctx, b.tokens, info, amount); err != nil {
		return err
	}
	t.custodyDone = true

	telemetry.IncrSwapOut(info.Kind.String())
	b.logger.Info("tokens received", "token", token, "amount", amount, "from", sender,
		"toChain", toChain, "toAddress", toAddress)
	return nil
}

func (b *Bridge) guardOwner(r storage.Reader, caller identity.Caller) error {
	if err := b.access.requireNotPaused(r); err != nil {
		return err
	}
	return b.access.requireOwner(r, caller)
}

// TokenInfo returns the registry entry of token, ErrUnsupportedToken when
// it has none.
func (b *Bridge) TokenInfo(token common.Address) (*types.TokenInfo, error) {
	var info *types.TokenInfo
	err := b.read(func(r storage.Reader) error {
		found, ok, err := b.registry.lookup(r, token)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: token %s is not registered", types.ErrUnsupportedToken, token.Hex())
		}
		info = found
		return nil
	})
	return info, err
}

// Lookup returns the provenance of token and whether it is registered.
func (b *Bridge) Lookup(token common.Address) (types.TokenKind, bool, error) {
	var (
		kind types.TokenKind
		ok   bool
	)
	err := b.read(func(r storage.Reader) error {
		info, found, err := b.registry.lookup(r, token)
		if err != nil || !found {
			return err
		}
		kind, ok = info.Kind, true
		return nil
	})
	return kind, ok, err
}

func (b *Bridge) Tokens() ([]types.TokenInfo, error) {
	var tokens []types.TokenInfo
	err := b.read(func(r storage.Reader) (err error) {
		tokens, err = b.registry.list(r)
		return err
	})
	return tokens, err
}

func (b *Bridge) LastSwapOutID() (uint64, error) {
	var id uint64
	err := b.read(func(r storage.Reader) (err error) {
		id, err = b.ledger.lastID(r)
		return err
	})
	return id, err
}

// SwapOutInfo returns the swap-out record with id, ErrNotFound for an id
// that was never allocated.
func (b *Bridge) SwapOutInfo(id uint64) (*types.SwapOutRecord, error) {
	var rec *types.SwapOutRecord
	err := b.read(func(r storage.Reader) (err error) {
		rec, err = b.ledger.record(r, id)
		return err
	})
	return rec, err
}

// Events returns up to limit logged events starting at sequence from.
func (b *Bridge) Events(from uint64, limit int) ([]types.Event, error) {
	var events []types.Event
	err := b.read(func(r storage.Reader) (err error) {
		events, err = b.events.list(r, from, limit)
		return err
	})
	return events, err
}

func (b *Bridge) State() (State, error) {
	var st State
	err := b.read(func(r storage.Reader) (err error) {
		if st.Owner, err = b.access.owner(r); err != nil {
			return err
		}
		if st.Paused, err = b.access.paused(r); err != nil {
			return err
		}
		st.LastSwapOutID, err = b.ledger.lastID(r)
		return err
	})
	st.LedgerEnabled = !b.opts.DisableLedger
	return st, err
}
