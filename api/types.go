package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// InitWalletJSON is the JSON form of an init payload. It carries no fields.
type InitWalletJSON struct{}

// FinalizeWalletRequestJSON is the JSON form of a finalize request payload.
type FinalizeWalletRequestJSON struct {
	// EncryptedPubKeys are base64 encoded, in token-ascending order
	EncryptedPubKeys [][]byte `json:"encrypted_pub_keys"`
}

// CommandRequestJSON is the file format of a request carried to the signing device.
type CommandRequestJSON struct {
	Token          string                     `json:"token"`
	WalletID       int32                      `json:"wallet_id"`
	InitWallet     *InitWalletJSON            `json:"init_wallet,omitempty"`
	FinalizeWallet *FinalizeWalletRequestJSON `json:"finalize_wallet,omitempty"`
}

// FinalizeWalletResponseJSON is the JSON form of a finalize response payload.
type FinalizeWalletResponseJSON struct {
	// PubKey is the extended public key bytes, base64 encoded
	PubKey []byte `json:"pub_key"`
}

// CommandResponseJSON is the file format of a response carried back from the signing device.
type CommandResponseJSON struct {
	Token          string                      `json:"token"`
	WalletID       int32                       `json:"wallet_id"`
	FinalizeWallet *FinalizeWalletResponseJSON `json:"finalize_wallet,omitempty"`
	Signature      []byte                      `json:"signature,omitempty"`
}

// ContributionJSON is one element's answer to an init request.
type ContributionJSON struct {
	Token           string `json:"token"`
	WalletID        int32  `json:"wallet_id"`
	EncryptedPubKey []byte `json:"encrypted_pub_key"`
}

// RequestToJSON converts a command request to its file format.
func RequestToJSON(req interfaces.CommandRequest) CommandRequestJSON {
	out := CommandRequestJSON{
		Token:    string(req.Token),
		WalletID: int32(req.WalletID),
	}
	if req.InitWallet != nil {
		out.InitWallet = &InitWalletJSON{}
	}
	if req.FinalizeWallet != nil {
		keys := make([][]byte, 0, len(req.FinalizeWallet.EncryptedPubKeys))
		for _, key := range req.FinalizeWallet.EncryptedPubKeys {
			keys = append(keys, key)
		}
		out.FinalizeWallet = &FinalizeWalletRequestJSON{EncryptedPubKeys: keys}
	}
	return out
}

// CommandRequest converts the file format back into a command request.
func (r CommandRequestJSON) CommandRequest() (interfaces.CommandRequest, error) {
	req := interfaces.CommandRequest{
		Token:    interfaces.Token(r.Token),
		WalletID: interfaces.WalletID(r.WalletID),
	}
	if r.InitWallet != nil {
		req.InitWallet = &interfaces.InitWalletRequest{}
	}
	if r.FinalizeWallet != nil {
		keys := make([]interfaces.EncryptedPubKey, 0, len(r.FinalizeWallet.EncryptedPubKeys))
		for _, key := range r.FinalizeWallet.EncryptedPubKeys {
			keys = append(keys, interfaces.EncryptedPubKey(key))
		}
		req.FinalizeWallet = &interfaces.FinalizeWalletRequest{EncryptedPubKeys: keys}
	}
	if err := req.Validate(); err != nil {
		return interfaces.CommandRequest{}, err
	}
	return req, nil
}

// ResponseToJSON converts a command response to its file format.
func ResponseToJSON(resp interfaces.CommandResponse) CommandResponseJSON {
	out := CommandResponseJSON{
		Token:     string(resp.Token),
		WalletID:  int32(resp.WalletID),
		Signature: resp.Signature,
	}
	if resp.FinalizeWallet != nil {
		out.FinalizeWallet = &FinalizeWalletResponseJSON{PubKey: resp.FinalizeWallet.PubKey}
	}
	return out
}

// CommandResponse converts the file format back into a command response.
func (r CommandResponseJSON) CommandResponse() interfaces.CommandResponse {
	resp := interfaces.CommandResponse{
		Token:     interfaces.Token(r.Token),
		WalletID:  interfaces.WalletID(r.WalletID),
		Signature: r.Signature,
	}
	if r.FinalizeWallet != nil {
		resp.FinalizeWallet = &interfaces.FinalizeWalletResponse{PubKey: r.FinalizeWallet.PubKey}
	}
	return resp
}

// MarshalRequest encodes a command request in its file format.
func MarshalRequest(req interfaces.CommandRequest) ([]byte, error) {
	return json.MarshalIndent(RequestToJSON(req), "", "  ")
}

// UnmarshalRequest decodes a command request from its file format.
func UnmarshalRequest(data []byte) (interfaces.CommandRequest, error) {
	var r CommandRequestJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return interfaces.CommandRequest{}, fmt.Errorf("could not parse command request: %w", err)
	}
	return r.CommandRequest()
}

// MarshalResponse encodes a command response in its file format.
func MarshalResponse(resp interfaces.CommandResponse) ([]byte, error) {
	return json.MarshalIndent(ResponseToJSON(resp), "", "  ")
}

// UnmarshalResponse decodes a command response from its file format.
func UnmarshalResponse(data []byte) (interfaces.CommandResponse, error) {
	var r CommandResponseJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return interfaces.CommandResponse{}, fmt.Errorf("could not parse command response: %w", err)
	}
	return r.CommandResponse(), nil
}

// UnmarshalContribution decodes one element's contribution.
func UnmarshalContribution(data []byte) (*ContributionJSON, error) {
	var c ContributionJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("could not parse contribution: %w", err)
	}
	if c.Token == "" {
		return nil, errors.New("contribution has no token")
	}
	return &c, nil
}

// ContributionMapFromJSON builds a contribution map, rejecting contributions
// for another wallet or repeated tokens.
func ContributionMapFromJSON(walletID interfaces.WalletID, contributions []*ContributionJSON) (interfaces.ContributionMap, error) {
	out := make(interfaces.ContributionMap, len(contributions))
	for _, c := range contributions {
		if interfaces.WalletID(c.WalletID) != walletID {
			return nil, fmt.Errorf("contribution %s is for wallet %d, expected %d", c.Token, c.WalletID, walletID)
		}
		token := interfaces.Token(c.Token)
		if _, found := out[token]; found {
			return nil, fmt.Errorf("duplicate contribution for token %s", c.Token)
		}
		out[token] = interfaces.EncryptedPubKey(c.EncryptedPubKey)
	}
	return out, nil
}

// CreateCeremonyRequest starts a ceremony on the coordinator.
type CreateCeremonyRequest struct {
	WalletID  int32 `json:"wallet_id"`
	Threshold int   `json:"threshold"`
	// Tokens optionally names the element tokens; generated when empty
	Tokens []string `json:"tokens,omitempty"`
}

// CreateCeremonyResponse returns the ceremony id and one init request per element.
type CreateCeremonyResponse struct {
	ID           string               `json:"id"`
	InitRequests []CommandRequestJSON `json:"init_requests"`
}

// SubmitContributionRequest carries one element's encrypted public key.
type SubmitContributionRequest struct {
	EncryptedPubKey []byte `json:"encrypted_pub_key"`
}

// FinalizeResultResponse returns the wallet's extended public key.
type FinalizeResultResponse struct {
	Xpub string `json:"xpub"`
}

// ErrorResponse carries a validation failure back to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
