package ceremony

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/coldwallet-ceremony/coldwallet"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

var (
	// ErrUnknownToken is returned when a response arrives for a token that was never issued.
	ErrUnknownToken = errors.New("unknown element token")

	// ErrDuplicateContribution is returned when an element answers twice.
	ErrDuplicateContribution = errors.New("element already contributed")

	// ErrDuplicateToken is returned when the same token is issued twice.
	ErrDuplicateToken = errors.New("element token already issued")

	// ErrTooManyElements is returned when more tokens are issued than the threshold allows.
	ErrTooManyElements = errors.New("all element tokens already issued")

	// ErrAlreadyFinalized is returned when a ceremony has already produced its wallet key.
	ErrAlreadyFinalized = errors.New("ceremony already finalized")

	// ErrNotFinalizing is returned when a finalize response does not answer a
	// finalize request built by the ceremony.
	ErrNotFinalizing = errors.New("no finalize request issued for token")
)

// NewToken generates a random element token.
func NewToken() interfaces.Token {
	return interfaces.Token(uuid.Must(uuid.NewRandom()).String())
}

// Ceremony tracks one wallet creation round on the orchestrator side: which
// element tokens were issued, which elements answered, and the final key.
//
// Contributions are held until the finalize request is built. A Ceremony is
// safe for concurrent use.
type Ceremony struct {
	mu sync.Mutex

	id       string
	walletID interfaces.WalletID
	creator  *coldwallet.Creator
	log      *slog.Logger

	issued        []interfaces.Token
	contributions interfaces.ContributionMap
	finalizing    map[interfaces.Token]struct{} // elements carrying a finalize request
	xpub          string
	createdAt     time.Time
	finalizedAt   time.Time
}

// New creates a ceremony for walletID. The creator's threshold bounds the
// number of element tokens that can be issued.
func New(walletID interfaces.WalletID, creator *coldwallet.Creator, log *slog.Logger) *Ceremony {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.Must(uuid.NewRandom()).String()
	return &Ceremony{
		id:            id,
		walletID:      walletID,
		creator:       creator,
		log:           log.With("ceremony", id, "walletID", walletID),
		contributions: make(interfaces.ContributionMap),
		finalizing:    make(map[interfaces.Token]struct{}),
		createdAt:     time.Now(),
	}
}

// ID returns the ceremony identifier.
func (c *Ceremony) ID() string {
	return c.id
}

// WalletID returns the wallet being created.
func (c *Ceremony) WalletID() interfaces.WalletID {
	return c.walletID
}

// Begin issues an init request for one element under token.
func (c *Ceremony) Begin(token interfaces.Token) (interfaces.CommandRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.xpub != "" {
		return interfaces.CommandRequest{}, ErrAlreadyFinalized
	}

	for _, issued := range c.issued {
		if issued == token {
			return interfaces.CommandRequest{}, fmt.Errorf("%w: %s", ErrDuplicateToken, token)
		}
	}

	if len(c.issued) >= c.creator.Threshold() {
		return interfaces.CommandRequest{}, ErrTooManyElements
	}

	c.issued = append(c.issued, token)
	c.log.Debug("Issued init request", "token", token)

	return c.creator.Init(token, c.walletID), nil
}

// BeginAll issues init requests for every remaining element slot using
// freshly generated tokens.
func (c *Ceremony) BeginAll() ([]interfaces.CommandRequest, error) {
	var requests []interfaces.CommandRequest
	for {
		c.mu.Lock()
		remaining := c.creator.Threshold() - len(c.issued)
		c.mu.Unlock()
		if remaining <= 0 {
			return requests, nil
		}

		req, err := c.Begin(NewToken())
		if err != nil {
			return requests, err
		}
		requests = append(requests, req)
	}
}

// Submit records the encrypted public key returned by the element holding token.
func (c *Ceremony) Submit(token interfaces.Token, key interfaces.EncryptedPubKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.xpub != "" {
		return ErrAlreadyFinalized
	}

	if !c.isIssued(token) {
		c.log.Warn("Rejected contribution for unknown token", "token", token)
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	if _, found := c.contributions[token]; found {
		c.log.Warn("Rejected duplicate contribution", "token", token)
		return fmt.Errorf("%w: %s", ErrDuplicateContribution, token)
	}

	if len(key) == 0 {
		return fmt.Errorf("%w: empty key for token %s", interfaces.ErrIncompleteContribution, token)
	}

	c.contributions[token] = key.Clone()
	c.log.Info("Recorded contribution", "token", token, "collected", len(c.contributions), "threshold", c.creator.Threshold())

	return nil
}

// Ready reports whether every issued element has contributed and all
// element slots are issued.
func (c *Ceremony) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issued) == c.creator.Threshold() && len(c.contributions) == len(c.issued)
}

// Contributions returns a copy of the collected contributions. Issued
// elements that have not answered appear with a nil key so Combine reports
// them as missing.
func (c *Ceremony) Contributions() interfaces.ContributionMap {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(interfaces.ContributionMap, len(c.issued))
	for _, token := range c.issued {
		out[token] = c.contributions[token].Clone()
	}
	return out
}

// FinalizeRequest builds the finalize request carried by elementToken.
func (c *Ceremony) FinalizeRequest(elementToken interfaces.Token) (interfaces.CommandRequest, error) {
	req, err := c.creator.Combine(c.Contributions(), elementToken, c.walletID)
	if err != nil {
		c.log.Warn("Failed to combine contributions", "elementToken", elementToken, "err", err)
		return interfaces.CommandRequest{}, err
	}

	c.mu.Lock()
	c.finalizing[elementToken] = struct{}{}
	c.mu.Unlock()

	c.log.Info("Built finalize request", "elementToken", elementToken)
	return req, nil
}

// Complete extracts the wallet's extended public key from the device's
// finalize response and records it. The response must carry the token of an
// element a finalize request was built for.
func (c *Ceremony) Complete(response interfaces.CommandResponse) (string, error) {
	if response.WalletID != c.walletID {
		return "", fmt.Errorf("%w: response for wallet %d, ceremony for wallet %d", interfaces.ErrMalformedResponse, response.WalletID, c.walletID)
	}

	c.mu.Lock()
	_, finalizing := c.finalizing[response.Token]
	c.mu.Unlock()
	if !finalizing {
		c.log.Warn("Rejected finalize response", "token", response.Token)
		return "", fmt.Errorf("%w: %s", ErrNotFinalizing, response.Token)
	}

	xpub, err := c.creator.Finalize(response)
	if err != nil {
		c.log.Warn("Failed to finalize wallet", "err", err)
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.xpub != "" && c.xpub != xpub {
		return "", fmt.Errorf("%w with a different key", ErrAlreadyFinalized)
	}
	c.xpub = xpub
	c.finalizedAt = time.Now()
	c.log.Info("Wallet finalized", "xpub", xpub)

	return xpub, nil
}

// Status is a snapshot of a ceremony's progress.
type Status struct {
	ID          string              `json:"id"`
	WalletID    interfaces.WalletID `json:"wallet_id"`
	Threshold   int                 `json:"threshold"`
	Issued      []interfaces.Token  `json:"issued"`
	Contributed []interfaces.Token  `json:"contributed"`
	Ready       bool                `json:"ready"`
	Xpub        string              `json:"xpub,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	FinalizedAt *time.Time          `json:"finalized_at,omitempty"`
}

// Status returns a snapshot of the ceremony.
func (c *Ceremony) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		ID:          c.id,
		WalletID:    c.walletID,
		Threshold:   c.creator.Threshold(),
		Issued:      append([]interfaces.Token{}, c.issued...),
		Contributed: c.contributions.SortedTokens(),
		Ready:       len(c.issued) == c.creator.Threshold() && len(c.contributions) == len(c.issued),
		Xpub:        c.xpub,
		CreatedAt:   c.createdAt,
	}
	if !c.finalizedAt.IsZero() {
		finalizedAt := c.finalizedAt
		status.FinalizedAt = &finalizedAt
	}
	return status
}

func (c *Ceremony) isIssued(token interfaces.Token) bool {
	for _, issued := range c.issued {
		if issued == token {
			return true
		}
	}
	return false
}
