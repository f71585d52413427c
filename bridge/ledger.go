package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"gotokenbridge/storage"
	"gotokenbridge/types"
)

// ledger is the append-only record of swap-outs, keyed by a gap-free id
// starting at 1.
type ledger struct{}

type swapOutRequest struct {
	Token     common.Address
	Amount    *big.Int
	From      common.Address
	ToChain   string
	ToAddress string
	CreatedAt int64
}

func (ledger) lastID(r storage.Reader) (uint64, error) {
	return getUint(r, lastSwapOutKey)
}

func (l ledger) record(r storage.Reader, id uint64) (*types.SwapOutRecord, error) {
	var rec types.SwapOutRecord
	ok, err := getJSON(r, swapOutKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if ok {
		return &rec, nil
	}

	last, err := l.lastID(r)
	if err != nil {
		return nil, err
	}
	if id >= 1 && id <= last {
		return nil, fmt.Errorf("%w: swap-out %d missing below last id %d, ledger is corrupt", types.ErrNotFound, id, last)
	}
	return nil, fmt.Errorf("%w: swap-out %d", types.ErrNotFound, id)
}

// recordAndExecute stores the next swap-out record, hands it to emit and
// then applies the custody action its token's provenance calls for. It runs
// inside tx, so a failing custody action discards the record and the counter
// bump with it. The custody action is the last step; nothing may fail after
// it but the commit itself.
func (l ledger) recordAndExecute(
	ctx context.Context, tx storage.Tx, reg registry, tokens TokenResolver, req swapOutRequest,
	emit func(rec *types.SwapOutRecord) error,
) (*types.SwapOutRecord, error) {
	info, ok, err := reg.lookup(tx, req.Token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: token %s is not registered", types.ErrUnsupportedToken, req.Token.Hex())
	}

	kind, err := types.SwapOutKindFor(info.Kind)
	if err != nil {
		return nil, err
	}

	last, err := l.lastID(tx)
	if err != nil {
		return nil, err
	}

	rec := &types.SwapOutRecord{
		ID:        last + 1,
		Kind:      kind,
		Token:     req.Token,
		Amount:    new(big.Int).Set(req.Amount),
		From:      req.From,
		ToChain:   req.ToChain,
		ToAddress: req.ToAddress,
		CreatedAt: req.CreatedAt,
	}

	if err := setJSON(tx, swapOutKey(rec.ID), rec); err != nil {
		return nil, err
	}
	if err := setUint(tx, lastSwapOutKey, rec.ID); err != nil {
		return nil, err
	}
	if err := emit(rec); err != nil {
		return nil, err
	}

	if err := applySwapOutCustody(ctx, tokens, info, req.Amount); err != nil {
		return nil, err
	}

	return rec, nil
}

// applySwapOutCustody burns representation tokens and leaves native ones
// locked where the sender put them.
func applySwapOutCustody(ctx context.Context, tokens TokenResolver, info *types.TokenInfo, amount *big.Int) error {
	switch info.Kind {
	case types.MintedHere:
		token, err := tokens.Token(info.Address)
		if err != nil {
			return fmt.Errorf("cannot resolve token %s: %w", info.Address.Hex(), err)
		}
		if err := token.Burn(ctx, amount); err != nil {
			return fmt.Errorf("burn of %s %s failed: %w", amount, info.Address.Hex(), err)
		}
		return nil
	case types.NativeHere:
		return nil
	default:
		return fmt.Errorf("no custody action for token kind %s", info.Kind)
	}
}
