package ceremonyhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/ceremony"
	"github.com/ruteri/coldwallet-ceremony/coldwallet"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// maxBodySize bounds request bodies accepted by the coordinator.
const maxBodySize = 1 << 20

// Handler serves the ceremony coordinator API.
type Handler struct {
	registry *ceremony.Registry
	archive  *ceremony.Archive
	log      *slog.Logger
}

// NewHandler creates a coordinator handler. archive may be nil, in which
// case exchanged messages are not recorded.
func NewHandler(registry *ceremony.Registry, archive *ceremony.Archive, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		archive:  archive,
		log:      log,
	}
}

// RegisterRoutes registers the following routes:
//   - POST /api/ceremony - Start a ceremony and issue init requests
//   - GET  /api/ceremony - List ceremonies
//   - GET  /api/ceremony/{id} - Ceremony status
//   - POST /api/ceremony/{id}/contribution/{token} - Record an element's encrypted public key
//   - GET  /api/ceremony/{id}/finalize/{token} - Build the finalize request for an element
//   - POST /api/ceremony/{id}/result - Submit the device's finalize response
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/ceremony", h.HandleCreate)
	r.Get("/api/ceremony", h.HandleList)
	r.Get("/api/ceremony/{id}", h.HandleStatus)
	r.Post("/api/ceremony/{id}/contribution/{token}", h.HandleContribution)
	r.Get("/api/ceremony/{id}/finalize/{token}", h.HandleFinalize)
	r.Post("/api/ceremony/{id}/result", h.HandleResult)
}

// HandleCreate starts a ceremony.
//
// Request: JSON-encoded api.CreateCeremonyRequest
// Response: JSON-encoded api.CreateCeremonyResponse
//
// Status codes:
//   - 201 Created: ceremony started
//   - 400 Bad Request: invalid threshold or tokens
//   - 409 Conflict: repeated element token
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCeremonyRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(req.Tokens) > 0 && req.Threshold == 0 {
		req.Threshold = len(req.Tokens)
	}
	if len(req.Tokens) > req.Threshold {
		h.writeError(w, http.StatusBadRequest, ceremony.ErrTooManyElements)
		return
	}
	if err := checkTokens(req.Tokens); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	c, err := h.registry.Create(interfaces.WalletID(req.WalletID), req.Threshold)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	requests, err := beginAll(c, req.Tokens)
	if err != nil {
		h.registry.Remove(c.ID())
		h.writeError(w, statusFor(err), err)
		return
	}

	resp := api.CreateCeremonyResponse{ID: c.ID()}
	for _, initReq := range requests {
		h.archiveRequest(r, initReq)
		resp.InitRequests = append(resp.InitRequests, api.RequestToJSON(initReq))
	}

	h.log.Info("Ceremony created", "ceremony", c.ID(), "walletID", req.WalletID, "threshold", req.Threshold)
	h.writeJSON(w, http.StatusCreated, resp)
}

// checkTokens rejects empty and repeated element tokens.
func checkTokens(tokens []string) error {
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return errors.New("empty element token")
		}
		if _, found := seen[token]; found {
			return fmt.Errorf("%w: %s", ceremony.ErrDuplicateToken, token)
		}
		seen[token] = struct{}{}
	}
	return nil
}

// beginAll issues init requests for the given tokens and generated tokens
// for the remaining slots.
func beginAll(c *ceremony.Ceremony, tokens []string) ([]interfaces.CommandRequest, error) {
	var requests []interfaces.CommandRequest
	for _, token := range tokens {
		initReq, err := c.Begin(interfaces.Token(token))
		if err != nil {
			return nil, err
		}
		requests = append(requests, initReq)
	}

	generated, err := c.BeginAll()
	if err != nil {
		return nil, err
	}
	return append(requests, generated...), nil
}

// HandleList returns the status of every ceremony.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.registry.List())
}

// HandleStatus returns a ceremony's status.
//
// Status codes:
//   - 200 OK: status returned
//   - 404 Not Found: unknown ceremony
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Status())
}

// HandleContribution records the encrypted public key an element returned
// for its init request.
//
// Request: JSON-encoded api.SubmitContributionRequest
//
// Status codes:
//   - 204 No Content: contribution recorded
//   - 400 Bad Request: malformed body or empty key
//   - 404 Not Found: unknown ceremony or token
//   - 409 Conflict: element already contributed or ceremony finalized
func (h *Handler) HandleContribution(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req api.SubmitContributionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token := interfaces.Token(chi.URLParam(r, "token"))
	if err := c.Submit(token, interfaces.EncryptedPubKey(req.EncryptedPubKey)); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleFinalize builds the finalize request to be carried by the element
// holding token.
//
// Response: JSON-encoded api.CommandRequestJSON
//
// Status codes:
//   - 200 OK: finalize request built
//   - 404 Not Found: unknown ceremony
//   - 409 Conflict: contribution set is not complete or not correlated
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	req, err := c.FinalizeRequest(interfaces.Token(chi.URLParam(r, "token")))
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.archiveRequest(r, req)
	h.writeJSON(w, http.StatusOK, api.RequestToJSON(req))
}

// HandleResult accepts the signing device's finalize response and returns
// the wallet's extended public key.
//
// Request: JSON-encoded api.CommandResponseJSON
// Response: JSON-encoded api.FinalizeResultResponse
//
// Status codes:
//   - 200 OK: wallet finalized
//   - 400 Bad Request: malformed response
//   - 404 Not Found: unknown ceremony
//   - 409 Conflict: no finalize request was built for the response token, or
//     the ceremony was already finalized with a different key
//   - 422 Unprocessable Entity: response failed verification
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var body api.CommandResponseJSON
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	response := body.CommandResponse()

	if h.archive != nil {
		if _, err := h.archive.StoreResponse(r.Context(), response); err != nil {
			h.log.Warn("Could not archive finalize response", "ceremony", c.ID(), "err", err)
		}
	}

	xpub, err := c.Complete(response)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.FinalizeResultResponse{Xpub: xpub})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*ceremony.Ceremony, bool) {
	c, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) archiveRequest(r *http.Request, req interfaces.CommandRequest) {
	if h.archive == nil {
		return
	}
	if _, err := h.archive.StoreRequest(r.Context(), req); err != nil {
		h.log.Warn("Could not archive command request", "token", req.Token, "err", err)
	}
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// statusFor maps ceremony and validation errors to HTTP status codes.
func statusFor(err error) int {
	var correlation *coldwallet.CorrelationError
	var incomplete *coldwallet.IncompleteContributionError
	var arity *coldwallet.ArityMismatchError

	switch {
	case errors.Is(err, ceremony.ErrCeremonyNotFound), errors.Is(err, ceremony.ErrUnknownToken):
		return http.StatusNotFound
	case errors.As(err, &correlation), errors.As(err, &incomplete), errors.As(err, &arity):
		return http.StatusConflict
	case errors.Is(err, ceremony.ErrDuplicateContribution),
		errors.Is(err, ceremony.ErrDuplicateToken),
		errors.Is(err, ceremony.ErrTooManyElements),
		errors.Is(err, ceremony.ErrAlreadyFinalized),
		errors.Is(err, ceremony.ErrNotFinalizing):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrUntrustedResponse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// errorKind names the validation failure for clients.
func errorKind(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrCorrelation):
		return "correlation"
	case errors.Is(err, interfaces.ErrIncompleteContribution):
		return "incomplete_contribution"
	case errors.Is(err, interfaces.ErrArityMismatch):
		return "arity_mismatch"
	case errors.Is(err, interfaces.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, interfaces.ErrUntrustedResponse):
		return "untrusted_response"
	default:
		return ""
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.log.Debug("Request failed", "status", status, "err", err)
	h.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: errorKind(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
