package handlers

import (
	"encoding/json"

	"gotokenbridge/types"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type APIResponseAddressBook struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	// custody address to send tokens to
	Address     string `json:"address"`
	DestChain   string `json:"destChain"`
	DestAddress string `json:"destAddress"`
}

type APIStateResponse struct {
	Status        string `json:"status"`
	Owner         string `json:"owner"`
	Paused        bool   `json:"paused"`
	LastSwapOutID uint64 `json:"lastSwapOutId"`
	LedgerEnabled bool   `json:"ledgerEnabled"`
}

type APIBalanceResponse struct {
	Status  string `json:"status"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type APILastSwapOutResponse struct {
	Status string `json:"status"`
	ID     uint64 `json:"id"`
}

type APISwapOutResponse struct {
	Status  string               `json:"status"`
	SwapOut *types.SwapOutRecord `json:"swapOut"`
}

type APITokensResponse struct {
	Status string            `json:"status"`
	Tokens []types.TokenInfo `json:"tokens"`
}

type APITokenResponse struct {
	Status string           `json:"status"`
	Token  *types.TokenInfo `json:"token"`
}

type APIEventsResponse struct {
	Status string        `json:"status"`
	Events []types.Event `json:"events"`
}

type APIIngressResponse struct {
	Status  string           `json:"status"`
	Ingress []*types.Ingress `json:"ingress"`
}

type APIAdminResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
	Nonce  uint64 `json:"nonce"`
	// set by tokens/minted
	Token string `json:"token,omitempty"`
}

type AddressBindingRequest struct {
	Address     string `json:"address"`
	Chain       string `json:"chain"`
	DestAddress string `json:"destAddress"`
	Nonce       uint64 `json:"nonce"`
	// EIP-191 signature of addressbook.BindingMessage by address
	Signature string `json:"signature"`
}

// SignedRequest carries an operator instruction. Payload is the exact JSON
// text that was signed, an AdminPayload.
type SignedRequest struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

type AdminPayload struct {
	Action    string `json:"action"`
	Nonce     uint64 `json:"nonce"`
	Owner     string `json:"owner,omitempty"`
	Token     string `json:"token,omitempty"`
	Name      string `json:"name,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// Encode renders p as the payload text of a SignedRequest.
func (p AdminPayload) Encode() (string, error) {
	raw, err := json.Marshal(p)
	return string(raw), err
}
