package ceremonyhandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/ceremony"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// Client talks to a ceremony coordinator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the coordinator at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

// Create starts a ceremony and returns its id along with the init requests
// to hand to each element.
func (c *Client) Create(walletID interfaces.WalletID, threshold int, tokens []interfaces.Token) (string, []interfaces.CommandRequest, error) {
	body := api.CreateCeremonyRequest{WalletID: int32(walletID), Threshold: threshold}
	for _, token := range tokens {
		body.Tokens = append(body.Tokens, string(token))
	}

	var resp api.CreateCeremonyResponse
	if err := c.do(http.MethodPost, "/api/ceremony", body, http.StatusCreated, &resp); err != nil {
		return "", nil, err
	}

	requests := make([]interfaces.CommandRequest, 0, len(resp.InitRequests))
	for _, r := range resp.InitRequests {
		req, err := r.CommandRequest()
		if err != nil {
			return "", nil, fmt.Errorf("coordinator returned invalid init request: %w", err)
		}
		requests = append(requests, req)
	}
	return resp.ID, requests, nil
}

// Status fetches a ceremony's progress.
func (c *Client) Status(id string) (*ceremony.Status, error) {
	var status ceremony.Status
	if err := c.do(http.MethodGet, "/api/ceremony/"+url.PathEscape(id), nil, http.StatusOK, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Contribute submits the encrypted public key returned by the element holding token.
func (c *Client) Contribute(id string, token interfaces.Token, key interfaces.EncryptedPubKey) error {
	path := fmt.Sprintf("/api/ceremony/%s/contribution/%s", url.PathEscape(id), url.PathEscape(string(token)))
	return c.do(http.MethodPost, path, api.SubmitContributionRequest{EncryptedPubKey: key}, http.StatusNoContent, nil)
}

// FinalizeRequest fetches the finalize request to be carried by the element
// holding token.
func (c *Client) FinalizeRequest(id string, token interfaces.Token) (interfaces.CommandRequest, error) {
	path := fmt.Sprintf("/api/ceremony/%s/finalize/%s", url.PathEscape(id), url.PathEscape(string(token)))

	var body api.CommandRequestJSON
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &body); err != nil {
		return interfaces.CommandRequest{}, err
	}
	return body.CommandRequest()
}

// SubmitResult hands the signing device's finalize response to the
// coordinator and returns the wallet's extended public key.
func (c *Client) SubmitResult(id string, response interfaces.CommandResponse) (string, error) {
	var result api.FinalizeResultResponse
	path := fmt.Sprintf("/api/ceremony/%s/result", url.PathEscape(id))
	if err := c.do(http.MethodPost, path, api.ResponseToJSON(response), http.StatusOK, &result); err != nil {
		return "", err
	}
	return result.Xpub, nil
}

// RequestError is returned when the coordinator answers with an unexpected status.
type RequestError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *RequestError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("coordinator returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("coordinator returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, in any, expectedStatus int, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach coordinator: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read coordinator response: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		var errResp api.ErrorResponse
		if json.Unmarshal(body, &errResp) != nil || errResp.Error == "" {
			errResp.Error = string(body)
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: errResp.Error, Kind: errResp.Kind}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not parse coordinator response: %w", err)
	}
	return nil
}
