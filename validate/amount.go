package validate

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"gotokenbridge/types"
)

// IsValidAmount reports whether v is a usable transfer amount: present and
// not negative. Zero is allowed.
func IsValidAmount(v *big.Int) bool {
	return CheckAmount(v) == nil
}

func CheckAmount(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: missing", types.ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", types.ErrInvalidAmount, v.String())
	}
	return nil
}

// ParseAmount reads a decimal or 0x-prefixed hex amount of at most 256 bits,
// the range a token balance can hold.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", types.ErrInvalidAmount)
	}
	if s[0] == '-' {
		return nil, fmt.Errorf("%w: %s is negative", types.ErrInvalidAmount, s)
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse %q", types.ErrInvalidAmount, s)
	}
	return v, nil
}
