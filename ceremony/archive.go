package ceremony

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// Archive keeps a content-addressed record of every message exchanged
// during a ceremony so that operators can audit what was carried to and
// from the signing device.
type Archive struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
}

// NewArchive creates an archive on top of a storage backend.
func NewArchive(backend interfaces.StorageBackend, log *slog.Logger) *Archive {
	return &Archive{backend: backend, log: log}
}

// StoreRequest archives a command request.
func (a *Archive) StoreRequest(ctx context.Context, req interfaces.CommandRequest) (interfaces.ContentID, error) {
	data, err := api.MarshalRequest(req)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to encode request: %w", err)
	}
	return a.store(ctx, data, interfaces.RequestType, "token", req.Token, "kind", req.Kind())
}

// StoreResponse archives a command response.
func (a *Archive) StoreResponse(ctx context.Context, resp interfaces.CommandResponse) (interfaces.ContentID, error) {
	data, err := api.MarshalResponse(resp)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return a.store(ctx, data, interfaces.ResponseType, "token", resp.Token)
}

// StoreContributions archives a collected contribution set.
func (a *Archive) StoreContributions(ctx context.Context, walletID interfaces.WalletID, contributions interfaces.ContributionMap) (interfaces.ContentID, error) {
	records := make([]api.ContributionJSON, 0, len(contributions))
	for _, token := range contributions.SortedTokens() {
		records = append(records, api.ContributionJSON{
			Token:           string(token),
			WalletID:        int32(walletID),
			EncryptedPubKey: contributions[token],
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to encode contributions: %w", err)
	}
	return a.store(ctx, data, interfaces.ContributionType, "walletID", walletID, "count", len(records))
}

// FetchRequest loads an archived command request.
func (a *Archive) FetchRequest(ctx context.Context, id interfaces.ContentID) (interfaces.CommandRequest, error) {
	data, err := a.backend.Fetch(ctx, id, interfaces.RequestType)
	if err != nil {
		return interfaces.CommandRequest{}, err
	}
	return api.UnmarshalRequest(data)
}

// FetchResponse loads an archived command response.
func (a *Archive) FetchResponse(ctx context.Context, id interfaces.ContentID) (interfaces.CommandResponse, error) {
	data, err := a.backend.Fetch(ctx, id, interfaces.ResponseType)
	if err != nil {
		return interfaces.CommandResponse{}, err
	}
	return api.UnmarshalResponse(data)
}

// FetchContributions loads an archived contribution set.
func (a *Archive) FetchContributions(ctx context.Context, walletID interfaces.WalletID, id interfaces.ContentID) (interfaces.ContributionMap, error) {
	data, err := a.backend.Fetch(ctx, id, interfaces.ContributionType)
	if err != nil {
		return nil, err
	}

	var records []*api.ContributionJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("could not parse contributions: %w", err)
	}
	return api.ContributionMapFromJSON(walletID, records)
}

func (a *Archive) store(ctx context.Context, data []byte, contentType interfaces.ContentType, attrs ...any) (interfaces.ContentID, error) {
	id, err := a.backend.Store(ctx, data, contentType)
	if err != nil {
		a.log.Error("Failed to archive ceremony message", append(attrs, "type", contentType.String(), "backend", a.backend.Name(), "err", err)...)
		return id, fmt.Errorf("failed to archive %s: %w", contentType, err)
	}
	a.log.Info("Archived ceremony message", append(attrs, "type", contentType.String(), "contentID", id.String())...)
	return id, nil
}
