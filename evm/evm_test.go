package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	require.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), TransferTopic)
	require.Equal(t, crypto.Keccak256Hash([]byte("TokenCreated(address,string,string)")), TokenCreatedTopic)
}

func TestParseTransfer(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	amount, _ := new(big.Int).SetString("1000000000000000000000", 10)

	l := ethtypes.Log{
		Address:     token,
		Topics:      []common.Hash{TransferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        math.U256Bytes(new(big.Int).Set(amount)),
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	tr, err := ParseTransfer(l)
	require.NoError(t, err)
	require.Equal(t, Transfer{
		Token:    token,
		From:     from,
		To:       to,
		Amount:   amount,
		TxHash:   l.TxHash,
		LogIndex: 3,
		Block:    42,
	}, tr)

	t.Run("wrong shape", func(t *testing.T) {
		bad := l
		bad.Topics = bad.Topics[:2]
		_, err := ParseTransfer(bad)
		require.Error(t, err)

		bad = l
		bad.Data = []byte{1, 2}
		_, err = ParseTransfer(bad)
		require.Error(t, err)

		bad = l
		bad.Topics = []common.Hash{TokenCreatedTopic, bad.Topics[1], bad.Topics[2]}
		_, err = ParseTransfer(bad)
		require.Error(t, err)
	})
}

func TestCreatedToken(t *testing.T) {
	factory := common.HexToAddress("0x4444444444444444444444444444444444444444")
	token := common.HexToAddress("0x5555555555555555555555555555555555555555")

	receipt := &ethtypes.Receipt{
		TxHash: common.HexToHash("0xdef"),
		Logs: []*ethtypes.Log{
			{Address: token, Topics: []common.Hash{TransferTopic}},
			{Address: factory, Topics: []common.Hash{TokenCreatedTopic, common.BytesToHash(token.Bytes())}},
		},
	}

	addr, err := createdToken(factory, receipt)
	require.NoError(t, err)
	require.Equal(t, token, addr)

	_, err = createdToken(common.HexToAddress("0x01"), receipt)
	require.Error(t, err)
}

func TestPack(t *testing.T) {
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := tokenABI.Pack("mint", to, big.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256([]byte("mint(address,uint256)"))[:4], data[:4])

	data, err = factoryABI.Pack("newToken", "Wrapped", "WX", uint8(18), big.NewInt(0), true, true)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256([]byte("newToken(string,string,uint8,uint256,bool,bool)"))[:4], data[:4])
}

func TestNewClient(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	_, err = NewClient(Config{ChainID: 1, PrivateKey: hexKey}, hclog.NewNullLogger())
	require.ErrorIs(t, err, ErrNoEndpoints)

	_, err = NewClient(Config{ChainID: 1, RPCList: []string{"http://localhost:8545"}, PrivateKey: "zz"}, hclog.NewNullLogger())
	require.Error(t, err)

	c, err := NewClient(Config{ChainID: 5, RPCList: []string{"http://localhost:8545"}, PrivateKey: hexKey}, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), c.Custodian())
	require.Equal(t, defaultGasLimit, c.gasLimit)
	require.Equal(t, defaultDeployGasLimit, c.deployGasLimit)
}
