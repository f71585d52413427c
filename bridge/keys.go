package bridge

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	ownerKey         = "bridge:owner"
	pausedKey        = "bridge:paused"
	lastSwapOutKey   = "swapout:last"
	swapOutPrefix    = "swapout:id:"
	lastEventKey     = "event:last"
	eventPrefix      = "event:seq:"
	tokenPrefix      = "token:"
	counterKeyFormat = "%020d" // zero padded so key order is numeric order
)

func tokenKey(addr common.Address) string {
	return tokenPrefix + strings.ToLower(addr.Hex())
}

func swapOutKey(id uint64) string {
	return swapOutPrefix + fmt.Sprintf(counterKeyFormat, id)
}

func eventKey(seq uint64) string {
	return eventPrefix + fmt.Sprintf(counterKeyFormat, seq)
}
