package ceremony

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruteri/coldwallet-ceremony/coldwallet"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// MaxThreshold bounds the number of elements a coordinated ceremony may have.
const MaxThreshold = 64

var (
	// ErrCeremonyNotFound is returned when a ceremony id is unknown.
	ErrCeremonyNotFound = errors.New("ceremony not found")

	// ErrThresholdTooLarge is returned when a ceremony asks for more than MaxThreshold elements.
	ErrThresholdTooLarge = errors.New("threshold too large")
)

// Registry holds the ceremonies run by one coordinator. Each ceremony
// carries its own threshold.
type Registry struct {
	mu         sync.RWMutex
	ceremonies map[string]*Ceremony
	verifier   interfaces.ResponseVerifier
	log        *slog.Logger
}

// NewRegistry creates an empty registry. Every ceremony it creates checks
// finalize responses with verifier.
func NewRegistry(verifier interfaces.ResponseVerifier, log *slog.Logger) *Registry {
	return &Registry{
		ceremonies: make(map[string]*Ceremony),
		verifier:   verifier,
		log:        log,
	}
}

// Create starts a ceremony for walletID with the given threshold.
func (r *Registry) Create(walletID interfaces.WalletID, threshold int) (*Ceremony, error) {
	if threshold > MaxThreshold {
		return nil, fmt.Errorf("%w: %d, at most %d", ErrThresholdTooLarge, threshold, MaxThreshold)
	}

	creator, err := coldwallet.NewCreator(coldwallet.Config{Threshold: threshold, Verifier: r.verifier})
	if err != nil {
		return nil, err
	}

	c := New(walletID, creator, r.log)

	r.mu.Lock()
	r.ceremonies[c.ID()] = c
	r.mu.Unlock()

	return c, nil
}

// Get returns the ceremony with the given id.
func (r *Registry) Get(id string) (*Ceremony, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, found := r.ceremonies[id]
	if !found {
		return nil, ErrCeremonyNotFound
	}
	return c, nil
}

// Remove drops a ceremony. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.ceremonies, id)
	r.mu.Unlock()
}

// List returns the status of every ceremony ordered by creation time.
func (r *Registry) List() []Status {
	r.mu.RLock()
	statuses := make([]Status, 0, len(r.ceremonies))
	for _, c := range r.ceremonies {
		statuses = append(statuses, c.Status())
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].CreatedAt.Before(statuses[j].CreatedAt) })
	return statuses
}
