// Package validate holds the input predicates shared by the bridge and its
// HTTP surface.
package validate

import (
	"fmt"
	"strings"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"

	"gotokenbridge/types"
)

// "0x" followed by 20 hex encoded bytes
const addressLength = 2 + 2*common.AddressLength

const (
	ReasonWrongLength      = "wrong length"
	ReasonMissingPrefix    = "missing 0x prefix"
	ReasonIllegalCharacter = "illegal character"
	ReasonBadChecksum      = "bad checksum"
)

// AddressError reports why a value is not a well formed address of this chain.
type AddressError struct {
	Value  string
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s %q: %s", types.ErrInvalidAddress, e.Value, e.Reason)
}

func (e *AddressError) Unwrap() error { return types.ErrInvalidAddress }

// IsValidAddress reports whether value is a syntactically valid address.
// Only the format is checked, not whether anything is deployed there.
func IsValidAddress(value string) bool {
	_, err := CheckAddress(value)
	return err == nil
}

// CheckAddress validates value and returns it parsed. Mixed case input must
// carry a valid EIP-55 checksum; all-lower and all-upper hex is accepted as is.
func CheckAddress(value string) (common.Address, error) {
	if len(value) != addressLength {
		return common.Address{}, &AddressError{Value: value, Reason: ReasonWrongLength}
	}
	if value[:2] != "0x" && value[:2] != "0X" {
		return common.Address{}, &AddressError{Value: value, Reason: ReasonMissingPrefix}
	}

	digits := value[2:]
	for i := 0; i < len(digits); i++ {
		if !isHexChar(digits[i]) {
			return common.Address{}, &AddressError{
				Value:  value,
				Reason: fmt.Sprintf("%s %q at %d", ReasonIllegalCharacter, digits[i], i+2),
			}
		}
	}

	if digits != strings.ToLower(digits) && digits != strings.ToUpper(digits) {
		if err := ethav.Validate("0x" + digits); err != nil {
			return common.Address{}, &AddressError{Value: value, Reason: ReasonBadChecksum}
		}
	}

	return common.HexToAddress(value), nil
}

func isHexChar(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
