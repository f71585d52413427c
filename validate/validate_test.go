package validate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"gotokenbridge/types"
)

func TestCheckAddress(t *testing.T) {
	t.Run("checksummed", func(t *testing.T) {
		addr, err := CheckAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		require.Equal(t, common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"), addr)
	})

	t.Run("EIP-55 vectors", func(t *testing.T) {
		for _, v := range []string{
			"0x52908400098527886E0F7030069857D2E4169EE7",
			"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
			"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
			"0XD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		} {
			require.True(t, IsValidAddress(v), v)
		}
	})

	t.Run("one flipped letter breaks the checksum", func(t *testing.T) {
		_, err := CheckAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5D359")

		var addrErr *AddressError
		require.True(t, errors.As(err, &addrErr))
		require.Equal(t, ReasonBadChecksum, addrErr.Reason)
	})

	t.Run("single case is accepted without checksum", func(t *testing.T) {
		require.True(t, IsValidAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
		require.True(t, IsValidAddress("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"))
	})

	cases := []struct {
		name   string
		value  string
		reason string
	}{
		{"empty", "", ReasonWrongLength},
		{"short", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", ReasonWrongLength},
		{"long", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", ReasonWrongLength},
		{"no prefix", "005aaeb6053f3e94c9b9a09f33669435e7ef1beaed", ReasonMissingPrefix},
		{"bad checksum", "0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed", ReasonBadChecksum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CheckAddress(tc.value)
			require.ErrorIs(t, err, types.ErrInvalidAddress)

			var addrErr *AddressError
			require.True(t, errors.As(err, &addrErr))
			require.Equal(t, tc.value, addrErr.Value)
			require.Equal(t, tc.reason, addrErr.Reason)
		})
	}

	t.Run("illegal character", func(t *testing.T) {
		_, err := CheckAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beazz")

		var addrErr *AddressError
		require.True(t, errors.As(err, &addrErr))
		require.Contains(t, addrErr.Reason, ReasonIllegalCharacter)
		require.Contains(t, err.Error(), "at 40")
	})
}

func TestAmount(t *testing.T) {
	require.True(t, IsValidAmount(big.NewInt(0)))
	require.True(t, IsValidAmount(new(big.Int).Lsh(big.NewInt(1), 200)))
	require.False(t, IsValidAmount(nil))
	require.False(t, IsValidAmount(big.NewInt(-1)))
	require.ErrorIs(t, CheckAmount(big.NewInt(-5)), types.ErrInvalidAmount)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1000000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", v.String())

	v, err = ParseAmount("0x10")
	require.NoError(t, err)
	require.Equal(t, int64(16), v.Int64())

	for _, bad := range []string{"", "-1", "1.5", "abc"} {
		_, err := ParseAmount(bad)
		require.ErrorIs(t, err, types.ErrInvalidAmount, bad)
	}
}
