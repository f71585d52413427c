package addressbook

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"gotokenbridge/identity"
	"gotokenbridge/storage"
	"gotokenbridge/types"
)

func TestBook(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	source := crypto.PubkeyToAddress(key.PublicKey)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	const dest = "0xabc0000000000000000000000000000000000def"

	sign := func(t *testing.T, chain, destAddress string, nonce uint64) string {
		t.Helper()

		sig, err := identity.SignMessage(key, []byte(BindingMessage(source, chain, destAddress, nonce)))
		require.NoError(t, err)
		return sig
	}

	newBook := func() *Book {
		b := New(storage.NewMemory(), []string{"eth", "BNB"}, hclog.NewNullLogger())
		b.now = func() time.Time { return time.Unix(1700000000, 0) }
		return b
	}

	t.Run("signed binding", func(t *testing.T) {
		b := newBook()

		rec, err := b.BindSigned(source.Hex(), "ETH", dest, 1, sign(t, "eth", dest, 1))
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		require.Equal(t, "eth", rec.DestChain)

		found, err := b.Lookup(source)
		require.NoError(t, err)
		require.Equal(t, rec, found)
		require.Equal(t, int64(1700000000), found.TsCreated)
	})

	t.Run("rebinding replaces", func(t *testing.T) {
		b := newBook()

		_, err := b.Bind(source, "eth", dest)
		require.NoError(t, err)
		_, err = b.Bind(source, "bnb", "0x1")
		require.NoError(t, err)

		found, err := b.Lookup(source)
		require.NoError(t, err)
		require.Equal(t, "bnb", found.DestChain)
		require.Equal(t, "0x1", found.DestAddress)
	})

	t.Run("signed binding is single use", func(t *testing.T) {
		b := newBook()

		sig := sign(t, "eth", dest, 1)
		_, err := b.BindSigned(source.Hex(), "eth", dest, 1, sig)
		require.NoError(t, err)

		// the same signature cannot redirect deposits to another chain
		_, err = b.BindSigned(source.Hex(), "bnb", dest, 1, sig)
		require.ErrorIs(t, err, ErrSignerMismatch)

		_, err = b.BindSigned(source.Hex(), "bnb", "0x1", 2, sign(t, "bnb", "0x1", 2))
		require.NoError(t, err)

		// an older binding cannot be posted again
		_, err = b.BindSigned(source.Hex(), "eth", dest, 1, sig)
		require.ErrorIs(t, err, identity.ErrReplayed)

		found, err := b.Lookup(source)
		require.NoError(t, err)
		require.Equal(t, "bnb", found.DestChain)
		require.Equal(t, "0x1", found.DestAddress)
	})

	t.Run("rejected binding keeps the nonce", func(t *testing.T) {
		b := newBook()

		_, err := b.BindSigned(source.Hex(), "sol", dest, 3, sign(t, "sol", dest, 3))
		require.ErrorIs(t, err, ErrUnsupportedChain)

		_, err = b.BindSigned(source.Hex(), "eth", dest, 3, sign(t, "eth", dest, 3))
		require.NoError(t, err)
	})

	t.Run("rejections", func(t *testing.T) {
		b := newBook()

		foreign, err := identity.SignMessage(other, []byte(BindingMessage(source, "eth", dest, 1)))
		require.NoError(t, err)
		_, err = b.BindSigned(source.Hex(), "eth", dest, 1, foreign)
		require.ErrorIs(t, err, ErrSignerMismatch)

		own := sign(t, "eth", dest, 1)
		_, err = b.BindSigned(source.Hex(), "eth", "0xother", 1, own)
		require.ErrorIs(t, err, ErrSignerMismatch)

		_, err = b.BindSigned(source.Hex(), "eth", dest, 2, own)
		require.ErrorIs(t, err, ErrSignerMismatch)

		_, err = b.BindSigned("0x12", "eth", dest, 1, own)
		require.ErrorIs(t, err, types.ErrInvalidAddress)

		_, err = b.BindSigned(source.Hex(), "eth", dest, 1, "0x1234")
		require.ErrorIs(t, err, identity.ErrBadSignature)

		found, err := b.Lookup(source)
		require.NoError(t, err)
		require.Nil(t, found)
	})

	t.Run("any chain when unrestricted", func(t *testing.T) {
		b := New(storage.NewMemory(), nil, hclog.NewNullLogger())
		_, err := b.Bind(common.HexToAddress("0x01"), "whatever", "x")
		require.NoError(t, err)
	})
}
