package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Transfer is a decoded ERC-20 Transfer log.
type Transfer struct {
	Token    common.Address
	From     common.Address
	To       common.Address
	Amount   *big.Int
	TxHash   common.Hash
	LogIndex uint
	Block    uint64
	Removed  bool
}

func ParseTransfer(l ethtypes.Log) (Transfer, error) {
	if len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return Transfer{}, fmt.Errorf("not a Transfer log: %d topics", len(l.Topics))
	}
	if len(l.Data) < 32 {
		return Transfer{}, fmt.Errorf("short Transfer data: %d bytes", len(l.Data))
	}

	data := hexutil.Encode(l.Data)
	amount, ok := math.ParseBig256(data[0:66])
	if !ok {
		return Transfer{}, fmt.Errorf("cannot parse amount %s", data[0:66])
	}

	return Transfer{
		Token:    l.Address,
		From:     common.HexToAddress(l.Topics[1].Hex()),
		To:       common.HexToAddress(l.Topics[2].Hex()),
		Amount:   amount,
		TxHash:   l.TxHash,
		LogIndex: l.Index,
		Block:    l.BlockNumber,
		Removed:  l.Removed,
	}, nil
}

// createdToken finds the token address announced by factory in receipt.
func createdToken(factory common.Address, receipt *ethtypes.Receipt) (common.Address, error) {
	for _, l := range receipt.Logs {
		if l.Address != factory || len(l.Topics) < 2 || l.Topics[0] != TokenCreatedTopic {
			continue
		}
		return common.BytesToAddress(l.Topics[1].Bytes()), nil
	}
	return common.Address{}, fmt.Errorf("no TokenCreated log from factory %s in %s", factory.Hex(), receipt.TxHash.Hex())
}
