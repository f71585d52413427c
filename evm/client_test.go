package evm

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// fakeChain is the node state shared by every fake endpoint.
type fakeChain struct {
	mu         sync.Mutex
	nonceCalls int
	sent       []common.Hash
	receipts   map[common.Hash]*ethtypes.Receipt
	revert     bool
}

// fakeEth serves the eth namespace for one endpoint. sendErr is returned
// after the transaction was taken.
type fakeEth struct {
	chain   *fakeChain
	sendErr error
}

func (e *fakeEth) GetTransactionCount(common.Address, string) (hexutil.Uint64, error) {
	e.chain.mu.Lock()
	defer e.chain.mu.Unlock()

	e.chain.nonceCalls++
	return hexutil.Uint64(7 + e.chain.nonceCalls - 1), nil
}

func (e *fakeEth) GasPrice() (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(1000000000)), nil
}

func (e *fakeEth) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	var tx ethtypes.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}

	e.chain.mu.Lock()
	defer e.chain.mu.Unlock()

	e.chain.sent = append(e.chain.sent, tx.Hash())
	if _, ok := e.chain.receipts[tx.Hash()]; !ok {
		e.chain.receipts[tx.Hash()] = &ethtypes.Receipt{
			Status:      e.chain.receiptStatus(),
			Logs:        []*ethtypes.Log{},
			TxHash:      tx.Hash(),
			BlockNumber: big.NewInt(100),
		}
	}
	return tx.Hash(), e.sendErr
}

func (c *fakeChain) receiptStatus() uint64 {
	if c.revert {
		return ethtypes.ReceiptStatusFailed
	}
	return ethtypes.ReceiptStatusSuccessful
}

func (e *fakeEth) GetTransactionReceipt(hash common.Hash) (*ethtypes.Receipt, error) {
	e.chain.mu.Lock()
	defer e.chain.mu.Unlock()

	return e.chain.receipts[hash], nil
}

func newEndpoint(t *testing.T, chain *fakeChain, sendErr error) string {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &fakeEth{chain: chain, sendErr: sendErr}))
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(func() {
		httpSrv.Close()
		srv.Stop()
	})
	return httpSrv.URL
}

func TestClient_Transact(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")

	newClient := func(t *testing.T, endpoints ...string) *Client {
		t.Helper()

		c, err := NewClient(Config{ChainID: 5, RPCList: endpoints, PrivateKey: testKey}, hclog.NewNullLogger())
		require.NoError(t, err)
		return c
	}

	t.Run("send failing after the node took it is not signed again", func(t *testing.T) {
		chain := &fakeChain{receipts: map[common.Hash]*ethtypes.Receipt{}}
		c := newClient(t,
			newEndpoint(t, chain, errors.New("request timed out")),
			newEndpoint(t, chain, nil),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		receipt, err := c.transact(ctx, token, tokenABI, c.gasLimit, "mint", recipient, big.NewInt(5))
		require.NoError(t, err)

		require.Equal(t, 1, chain.nonceCalls)
		require.Len(t, chain.sent, 2)
		require.Equal(t, chain.sent[0], chain.sent[1])
		require.Equal(t, chain.sent[0], receipt.TxHash)
	})

	t.Run("already known counts as sent", func(t *testing.T) {
		chain := &fakeChain{receipts: map[common.Hash]*ethtypes.Receipt{}}
		c := newClient(t, newEndpoint(t, chain, errors.New("already known")))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := c.transact(ctx, token, tokenABI, c.gasLimit, "burn", big.NewInt(5))
		require.NoError(t, err)
		require.Len(t, chain.sent, 1)
	})

	t.Run("reverted receipt", func(t *testing.T) {
		chain := &fakeChain{receipts: map[common.Hash]*ethtypes.Receipt{}, revert: true}
		c := newClient(t, newEndpoint(t, chain, nil))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := c.transact(ctx, token, tokenABI, c.gasLimit, "transfer", recipient, big.NewInt(5))
		require.ErrorIs(t, err, ErrReverted)
	})

	t.Run("no endpoint takes it", func(t *testing.T) {
		chain := &fakeChain{receipts: map[common.Hash]*ethtypes.Receipt{}}
		c := newClient(t, newEndpoint(t, chain, errors.New("insufficient funds for gas")))

		_, err := c.transact(context.Background(), token, tokenABI, c.gasLimit, "burn", big.NewInt(5))
		require.ErrorContains(t, err, "insufficient funds")
	})
}

func TestAlreadyKnown(t *testing.T) {
	require.True(t, alreadyKnown(errors.New("already known")))
	require.True(t, alreadyKnown(errors.New("Known transaction: 0xabc")))
	require.False(t, alreadyKnown(errors.New("nonce too low")))
}
