package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"gotokenbridge/types"
)

type tokenMock struct {
	mock.Mock
}

func (m *tokenMock) Mint(_ context.Context, amount *big.Int, recipient common.Address) error {
	return m.Called(amount, recipient).Error(0)
}

func (m *tokenMock) Burn(_ context.Context, amount *big.Int) error {
	return m.Called(amount).Error(0)
}

func (m *tokenMock) Transfer(_ context.Context, amount *big.Int, recipient common.Address) error {
	return m.Called(amount, recipient).Error(0)
}

type tokenHostMock struct {
	mock.Mock
}

func (m *tokenHostMock) Token(addr common.Address) (Token, error) {
	args := m.Called(addr)
	tok, _ := args.Get(0).(Token)
	return tok, args.Error(1)
}

func (m *tokenHostMock) NewToken(
	_ context.Context, name, symbol string, decimals uint8, _ *big.Int, caps types.Capabilities,
) (common.Address, error) {
	args := m.Called(name, symbol, decimals, caps)
	return args.Get(0).(common.Address), args.Error(1)
}

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(_ context.Context, ev types.Event) error {
	return m.Called(ev).Error(0)
}
