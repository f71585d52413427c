package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TokenABI covers the ERC-20 subset the bridge drives plus the mint and
// burn entry points of bridge-deployed tokens.
const TokenABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// FactoryABI is the token factory the bridge deploys representation
// tokens through. The caller of newToken becomes the token's minter.
const FactoryABI = `[
	{"type":"function","name":"newToken","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"decimals","type":"uint8"},{"name":"initialSupply","type":"uint256"},{"name":"mintable","type":"bool"},{"name":"burnable","type":"bool"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"TokenCreated","anonymous":false,"inputs":[{"name":"token","type":"address","indexed":true},{"name":"name","type":"string","indexed":false},{"name":"symbol","type":"string","indexed":false}]}
]`

var (
	tokenABI   = mustParse(TokenABI)
	factoryABI = mustParse(FactoryABI)

	// TransferTopic is keccak256("Transfer(address,address,uint256)").
	TransferTopic = tokenABI.Events["Transfer"].ID
	// TokenCreatedTopic identifies factory deployment logs.
	TokenCreatedTopic = factoryABI.Events["TokenCreated"].ID
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
