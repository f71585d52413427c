// Package handlers serves the bridge HTTP API.
package handlers

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/addressbook"
	"gotokenbridge/bridge"
	"gotokenbridge/identity"
	"gotokenbridge/ingress"
)

// Balances reports what the custody account holds.
type Balances interface {
	CustodyBalance(ctx context.Context, token common.Address) (*big.Int, error)
}

type Handlers struct {
	bridge    *bridge.Bridge
	book      *addressbook.Book
	nonces    *identity.NonceGuard
	ingress   *ingress.Store
	balances  Balances
	custodian common.Address
	logger    hclog.Logger
}

func New(
	b *bridge.Bridge, book *addressbook.Book, nonces *identity.NonceGuard, ingressStore *ingress.Store,
	balances Balances, custodian common.Address, logger hclog.Logger,
) *Handlers {
	return &Handlers{
		bridge:    b,
		book:      book,
		nonces:    nonces,
		ingress:   ingressStore,
		balances:  balances,
		custodian: custodian,
		logger:    logger.Named("http"),
	}
}
