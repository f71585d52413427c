// Package addressbook binds depositing addresses on this chain to the
// remote destination their deposits are forwarded to. A plain token
// transfer carries no destination, so the sender registers one up front
// and proves ownership of the source address with a signature.
package addressbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/identity"
	"gotokenbridge/storage"
	"gotokenbridge/types"
	"gotokenbridge/validate"
)

var (
	ErrUnsupportedChain = errors.New("destination chain not supported")
	ErrSignerMismatch   = errors.New("signature does not match the source address")
)

const keyPrefix = "addrbook:"

type Book struct {
	store  storage.Store
	chains map[string]struct{}
	nonces *identity.NonceGuard
	now    func() time.Time
	logger hclog.Logger
}

// New returns an address book accepting destinations on chains. An empty
// list accepts any chain name.
func New(store storage.Store, chains []string, logger hclog.Logger) *Book {
	allowed := make(map[string]struct{}, len(chains))
	for _, c := range chains {
		allowed[strings.ToLower(c)] = struct{}{}
	}
	return &Book{
		store:  store,
		chains: allowed,
		nonces: identity.NewNonceGuard(store).Scoped("addrbook"),
		now:    time.Now,
		logger: logger.Named("addressbook"),
	}
}

func recordKey(addr common.Address) string {
	return keyPrefix + strings.ToLower(addr.Hex())
}

// BindingMessage is the text a depositor signs to bind source to
// destAddress on destChain. nonce must exceed the one of every earlier
// binding by source.
func BindingMessage(source common.Address, destChain, destAddress string, nonce uint64) string {
	return fmt.Sprintf("%s:%s:%s:%d", strings.ToLower(source.Hex()), strings.ToLower(destChain), destAddress, nonce)
}

// BindSigned binds source to (destChain, destAddress) after checking that
// signature is source's EIP-191 signature over BindingMessage. A later
// binding replaces the earlier one; a signature is accepted once.
func (b *Book) BindSigned(
	source, destChain, destAddress string, nonce uint64, signature string,
) (*types.AddressBookRecord, error) {
	src, err := validate.CheckAddress(source)
	if err != nil {
		return nil, err
	}
	if destAddress == "" {
		return nil, fmt.Errorf("%w: empty destination address", types.ErrInvalidAddress)
	}

	signer, err := identity.FromSignature([]byte(BindingMessage(src, destChain, destAddress, nonce)), signature)
	if err != nil {
		return nil, err
	}
	if signer.Address() != src {
		b.logger.Debug("recovered signer differs", "signer", signer, "source", src)
		return nil, fmt.Errorf("%w: recovered %s", ErrSignerMismatch, signer)
	}

	return b.bind(src, destChain, destAddress, func(tx storage.Tx) error {
		return b.nonces.UseTx(tx, signer, nonce)
	})
}

// Bind stores the binding without a proof. The caller must have
// authenticated source.
func (b *Book) Bind(source common.Address, destChain, destAddress string) (*types.AddressBookRecord, error) {
	return b.bind(source, destChain, destAddress, nil)
}

// bind writes the record. guard, when set, runs in the same transaction and
// can veto the write.
func (b *Book) bind(
	source common.Address, destChain, destAddress string, guard func(tx storage.Tx) error,
) (*types.AddressBookRecord, error) {
	destChain = strings.ToLower(destChain)
	if destChain == "" {
		return nil, fmt.Errorf("%w: empty destination chain", ErrUnsupportedChain)
	}
	if _, ok := b.chains[destChain]; len(b.chains) > 0 && !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, destChain)
	}

	rec := &types.AddressBookRecord{
		ID:            uuid.New().String(),
		SourceAddress: source,
		DestChain:     destChain,
		DestAddress:   destAddress,
		TsCreated:     b.now().Unix(),
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal address book record to JSON: %w", err)
	}
	err = b.store.Update(func(tx storage.Tx) error {
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}
		return tx.Set(recordKey(source), raw)
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("address bound", "id", rec.ID, "source", source, "destChain", destChain, "destAddress", destAddress)
	return rec, nil
}

// Lookup returns the binding of source, nil when there is none.
func (b *Book) Lookup(source common.Address) (*types.AddressBookRecord, error) {
	raw, err := b.store.Get(recordKey(source))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec types.AddressBookRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("cannot unmarshal address book record of %s: %w", source.Hex(), err)
	}
	return &rec, nil
}
