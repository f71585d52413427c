// Package identity produces the authenticated callers the bridge authorizes
// against. The bridge itself never constructs a Caller.
package identity

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrBadSignature = errors.New("bad signature")

// Caller is a principal whose identity has already been established by the
// execution environment: a recovered signer, a token contract calling back,
// or the deploying operator.
type Caller struct {
	addr common.Address
}

func (c Caller) Address() common.Address { return c.addr }

func (c Caller) String() string { return c.addr.Hex() }

// Trusted vouches for addr without further proof. Only the host side
// (token callbacks, deployment, tests) should use it.
func Trusted(addr common.Address) Caller {
	return Caller{addr: addr}
}

// FromSignature recovers the signer of an EIP-191 personal message.
func FromSignature(msg []byte, sig string) (Caller, error) {
	addr, err := recoverSigner(msg, sig)
	if err != nil {
		return Caller{}, err
	}
	return Caller{addr: *addr}, nil
}

// SignMessage produces the signature FromSignature accepts, in the 27/28
// recovery id form wallets emit.
func SignMessage(key *ecdsa.PrivateKey, msg []byte) (string, error) {
	sig, err := crypto.Sign(prefixHash(msg).Bytes(), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func prefixHash(data []byte) common.Hash {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256Hash([]byte(msg))
}

func publicKeyBytesToAddress(publicKey []byte) *common.Address {
	if len(publicKey) < 1 {
		return nil
	}

	hash := crypto.Keccak256Hash(publicKey[1:]).Bytes()
	address := hash[12:]

	addr := common.HexToAddress(hex.EncodeToString(address))
	return &addr
}

func recoverSigner(msg []byte, sig string) (*common.Address, error) {
	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %v", ErrBadSignature, err)
	}

	if len(sigBytes) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: length %d", ErrBadSignature, len(sigBytes))
	}

	v := sigBytes[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 && v != 0 && v != 1 {
		return nil, fmt.Errorf("%w: wrong recovery id %d", ErrBadSignature, v)
	}
	if v == 27 || v == 28 {
		sigBytes[crypto.RecoveryIDOffset] = v - 27
	}

	sigPublicKey, err := crypto.Ecrecover(prefixHash(msg).Bytes(), sigBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot recover public key: %v", ErrBadSignature, err)
	}

	address := publicKeyBytesToAddress(sigPublicKey)
	if address == nil {
		return nil, fmt.Errorf("%w: empty public key", ErrBadSignature)
	}

	return address, nil
}
