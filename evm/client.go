// Package evm hosts bridge tokens on an EVM chain reached over JSON-RPC.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-hclog"
)

var (
	ErrNoEndpoints = errors.New("no RPC endpoints configured")
	ErrReverted    = errors.New("transaction reverted")
)

const (
	defaultGasLimit       = uint64(200000)
	defaultDeployGasLimit = uint64(3000000)
)

type Config struct {
	ChainID        int64
	RPCList        []string
	PrivateKey     string // hex, no 0x
	GasLimit       uint64
	DeployGasLimit uint64
}

// Client sends transactions as the custody account, falling back across
// the configured endpoints.
type Client struct {
	chainID        *big.Int
	rpcList        []string
	key            *ecdsa.PrivateKey
	from           common.Address
	gasLimit       uint64
	deployGasLimit uint64
	logger         hclog.Logger
}

func NewClient(cfg Config, logger hclog.Logger) (*Client, error) {
	if len(cfg.RPCList) == 0 {
		return nil, ErrNoEndpoints
	}

	privateKey, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error instantiating private key: %w", err)
	}

	c := &Client{
		chainID:        big.NewInt(cfg.ChainID),
		rpcList:        cfg.RPCList,
		key:            privateKey,
		from:           crypto.PubkeyToAddress(privateKey.PublicKey),
		gasLimit:       cfg.GasLimit,
		deployGasLimit: cfg.DeployGasLimit,
		logger:         logger.Named("evm").With("chainId", cfg.ChainID),
	}
	if c.gasLimit == 0 {
		c.gasLimit = defaultGasLimit
	}
	if c.deployGasLimit == 0 {
		c.deployGasLimit = defaultDeployGasLimit
	}
	return c, nil
}

// Custodian is the account transactions are signed with.
func (c *Client) Custodian() common.Address { return c.from }

// WithClient runs f against each endpoint in turn until one succeeds and
// returns the last error when none does.
func WithClient[T any](ctx context.Context, c *Client, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	err = ErrNoEndpoints
	for _, url := range c.rpcList {
		var client *ethclient.Client
		client, err = ethclient.DialContext(ctx, url)
		if err != nil {
			c.logger.Warn("error connecting to RPC", "url", url, "err", err)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return res, nil
		}
		c.logger.Debug("RPC call failed", "url", url, "err", err)
	}
	return res, err
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *Client) transactor(ctx context.Context, client *ethclient.Client, gasLimit uint64) (*bind.TransactOpts, error) {
	nonce, err := client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("error getting nonce for wallet: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting suggested gas price: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("error instantiating contract call: %w", err)
	}

	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.Value = big.NewInt(0)
	auth.GasLimit = gasLimit
	auth.GasPrice = gasPrice
	if c.chainID.Cmp(big.NewInt(1)) != 0 {
		// outside mainnet pay double to get included promptly
		auth.GasPrice = new(big.Int).Mul(gasPrice, big.NewInt(2))
	}
	return auth, nil
}

// transact sends method on contract and waits for a successful receipt.
// The transaction is signed once; endpoint fallback only ever rebroadcasts
// that same signed transaction, so a send that failed after a node took it
// cannot produce a second one.
func (c *Client) transact(
	ctx context.Context, contract common.Address, parsed abi.ABI, gasLimit uint64, method string, args ...interface{},
) (*ethtypes.Receipt, error) {
	tx, err := WithClient(ctx, c, func(client *ethclient.Client) (*ethtypes.Transaction, error) {
		auth, err := c.transactor(ctx, client, gasLimit)
		if err != nil {
			return nil, err
		}
		auth.NoSend = true
		bound := bind.NewBoundContract(contract, parsed, client, client, client)
		return bound.Transact(auth, method, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("error signing %s on %s: %w", method, contract.Hex(), err)
	}

	if err := c.broadcast(ctx, tx); err != nil {
		// a node may still have taken it
		c.logger.Error("transaction not confirmed as sent, check it before retrying", "method", method,
			"contract", contract, "tx", tx.Hash(), "nonce", tx.Nonce(), "err", err)
		return nil, fmt.Errorf("error sending %s %s on %s: %w", method, tx.Hash().Hex(), contract.Hex(), err)
	}

	c.logger.Info("transaction sent", "method", method, "contract", contract, "tx", tx.Hash(), "nonce", tx.Nonce())

	receipt, err := WithClient(ctx, c, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return bind.WaitMined(ctx, client, tx)
	})
	if err != nil {
		return nil, fmt.Errorf("error waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s %s in block %d", ErrReverted, method, tx.Hash().Hex(), receipt.BlockNumber)
	}
	return receipt, nil
}

// broadcast hands the signed tx to the first endpoint that takes it. An
// endpoint that already has it counts as taking it.
func (c *Client) broadcast(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := WithClient(ctx, c, func(client *ethclient.Client) (struct{}, error) {
		err := client.SendTransaction(ctx, tx)
		if err != nil && alreadyKnown(err) {
			c.logger.Debug("transaction already known to endpoint", "tx", tx.Hash())
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

// alreadyKnown matches the txpool's duplicate errors, which only reach us
// as RPC error text.
func alreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") ||
		strings.Contains(msg, "known transaction") ||
		strings.Contains(msg, "already imported")
}

// TransferLogs returns Transfer logs emitted by tokens in [from, to] whose
// recipient is recipient.
func (c *Client) TransferLogs(
	ctx context.Context, tokens []common.Address, recipient common.Address, from, to uint64,
) ([]Transfer, error) {
	logs, err := WithClient(ctx, c, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: tokens,
			Topics:    [][]common.Hash{{TransferTopic}, nil, {common.BytesToHash(recipient.Bytes())}},
		})
	})
	if err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(logs))
	for _, l := range logs {
		t, err := ParseTransfer(l)
		if err != nil {
			c.logger.Warn("skipping undecodable transfer log", "tx", l.TxHash, "index", l.Index, "err", err)
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}
