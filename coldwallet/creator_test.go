package coldwallet

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCreator(t *testing.T, threshold int) *Creator {
	t.Helper()
	creator, err := NewCreator(Config{Threshold: threshold})
	require.NoError(t, err)
	return creator
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(interfaces.CommandResponse) error { return errors.New("bad signature") }
func (rejectingVerifier) Name() string                            { return "rejecting" }

func TestNewCreator(t *testing.T) {
	creator, err := NewCreator(Config{Threshold: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, creator.Threshold())
	assert.Equal(t, "noop", creator.Verifier().Name(), "Verifier should default to noop")

	_, err = NewCreator(Config{Threshold: 0})
	assert.Error(t, err, "Should fail with zero threshold")

	_, err = NewCreator(Config{Threshold: -1})
	assert.Error(t, err, "Should fail with negative threshold")
}

func TestInit(t *testing.T) {
	tests := []struct {
		token    interfaces.Token
		walletID interfaces.WalletID
	}{
		{"token-a", 42},
		{"", 0},
		{"b", -7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q/%d", tt.token, tt.walletID), func(t *testing.T) {
			req := Init(tt.token, tt.walletID)
			assert.Equal(t, tt.token, req.Token)
			assert.Equal(t, tt.walletID, req.WalletID)
			assert.NotNil(t, req.InitWallet)
			assert.Nil(t, req.FinalizeWallet)
			assert.Equal(t, "init_wallet", req.Kind())
			assert.NoError(t, req.Validate())
		})
	}

	creator := newTestCreator(t, 2)
	assert.Equal(t, Init("x", 1), creator.Init("x", 1))
}

func TestCombine_Success(t *testing.T) {
	creator := newTestCreator(t, 3)
	keyA := interfaces.EncryptedPubKey("keyA")
	keyB := interfaces.EncryptedPubKey("keyB")
	keyC := interfaces.EncryptedPubKey("keyC")

	contributions := interfaces.ContributionMap{"c": keyC, "a": keyA, "b": keyB}

	req, err := creator.Combine(contributions, "b", 42)
	require.NoError(t, err)

	assert.Equal(t, interfaces.Token("b"), req.Token)
	assert.Equal(t, interfaces.WalletID(42), req.WalletID)
	assert.Nil(t, req.InitWallet)
	require.NotNil(t, req.FinalizeWallet)
	assert.Equal(t, []interfaces.EncryptedPubKey{keyA, keyB, keyC}, req.FinalizeWallet.EncryptedPubKeys,
		"Keys should be ordered by token ascending")
	assert.Equal(t, "finalize_wallet", req.Kind())
}

func TestCombine_OrderIsDeterministic(t *testing.T) {
	creator := newTestCreator(t, 5)
	contributions := interfaces.ContributionMap{}
	for _, token := range []string{"e", "b", "d", "a", "c"} {
		contributions[interfaces.Token(token)] = interfaces.EncryptedPubKey("key-" + token)
	}

	first, err := creator.Combine(contributions, "a", 1)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		req, err := creator.Combine(contributions, "a", 1)
		require.NoError(t, err)
		assert.Equal(t, first.FinalizeWallet.EncryptedPubKeys, req.FinalizeWallet.EncryptedPubKeys)
	}
}

func TestCombine_DoesNotAliasInput(t *testing.T) {
	creator := newTestCreator(t, 1)
	key := interfaces.EncryptedPubKey{1, 2, 3}

	req, err := creator.Combine(interfaces.ContributionMap{"a": key}, "a", 1)
	require.NoError(t, err)

	key[0] = 9
	assert.Equal(t, interfaces.EncryptedPubKey{1, 2, 3}, req.FinalizeWallet.EncryptedPubKeys[0])
}

func TestCombine_CorrelationError(t *testing.T) {
	tests := []struct {
		name          string
		threshold     int
		contributions interfaces.ContributionMap
	}{
		{
			name:          "too few contributions",
			threshold:     3,
			contributions: interfaces.ContributionMap{"a": interfaces.EncryptedPubKey("keyA")},
		},
		{
			name:          "exact arity",
			threshold:     2,
			contributions: interfaces.ContributionMap{"a": interfaces.EncryptedPubKey("keyA"), "b": interfaces.EncryptedPubKey("keyB")},
		},
		{
			name:          "null values present",
			threshold:     2,
			contributions: interfaces.ContributionMap{"a": nil, "b": nil},
		},
		{
			name:          "empty map",
			threshold:     1,
			contributions: interfaces.ContributionMap{},
		},
		{
			name:          "nil map",
			threshold:     1,
			contributions: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := newTestCreator(t, tt.threshold)
			_, err := creator.Combine(tt.contributions, "z", 1)
			require.Error(t, err)

			var correlationErr *CorrelationError
			require.ErrorAs(t, err, &correlationErr)
			assert.Equal(t, interfaces.Token("z"), correlationErr.ElementToken)
			assert.ErrorIs(t, err, interfaces.ErrCorrelation)
			assert.NotErrorIs(t, err, interfaces.ErrArityMismatch)
		})
	}
}

func TestCombine_IncompleteContributionError(t *testing.T) {
	keyA := interfaces.EncryptedPubKey("keyA")

	tests := []struct {
		name          string
		threshold     int
		contributions interfaces.ContributionMap
		missing       interfaces.Token
	}{
		{
			name:          "exact arity with null",
			threshold:     2,
			contributions: interfaces.ContributionMap{"a": keyA, "b": nil},
			missing:       "b",
		},
		{
			name:          "too few with null",
			threshold:     3,
			contributions: interfaces.ContributionMap{"a": keyA, "b": nil},
			missing:       "b",
		},
		{
			name:          "too many with null",
			threshold:     1,
			contributions: interfaces.ContributionMap{"a": keyA, "c": nil, "b": nil},
			missing:       "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := newTestCreator(t, tt.threshold)
			_, err := creator.Combine(tt.contributions, "a", 1)
			require.Error(t, err)

			var incompleteErr *IncompleteContributionError
			require.ErrorAs(t, err, &incompleteErr)
			assert.Equal(t, tt.missing, incompleteErr.Token, "Should report the first missing token")
			assert.ErrorIs(t, err, interfaces.ErrIncompleteContribution)
			assert.NotErrorIs(t, err, interfaces.ErrArityMismatch)
		})
	}
}

func TestCombine_EmptyBlobIsPresent(t *testing.T) {
	creator := newTestCreator(t, 1)
	req, err := creator.Combine(interfaces.ContributionMap{"a": interfaces.EncryptedPubKey{}}, "a", 1)
	require.NoError(t, err)
	assert.Len(t, req.FinalizeWallet.EncryptedPubKeys, 1)
}

func TestCombine_ArityMismatchError(t *testing.T) {
	contributionsOf := func(n int) interfaces.ContributionMap {
		m := interfaces.ContributionMap{}
		for i := 0; i < n; i++ {
			m[interfaces.Token(fmt.Sprintf("t%d", i))] = interfaces.EncryptedPubKey(fmt.Sprintf("key%d", i))
		}
		return m
	}

	tests := []struct {
		name      string
		threshold int
		size      int
		tooMany   bool
	}{
		{"one too few", 3, 2, false},
		{"far too few", 5, 1, false},
		{"one too many", 2, 3, true},
		{"far too many", 1, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := newTestCreator(t, tt.threshold)
			_, err := creator.Combine(contributionsOf(tt.size), "t0", 1)
			require.Error(t, err)

			var arityErr *ArityMismatchError
			require.ErrorAs(t, err, &arityErr)
			assert.Equal(t, tt.threshold, arityErr.Expected)
			assert.Equal(t, tt.size, arityErr.Got)
			assert.Equal(t, tt.tooMany, arityErr.TooMany())
			assert.ErrorIs(t, err, interfaces.ErrArityMismatch)
			assert.Contains(t, err.Error(), fmt.Sprintf("should contain %d values, but contained %d", tt.threshold, tt.size))
		})
	}
}

func TestFinalize(t *testing.T) {
	creator := newTestCreator(t, 2)

	for _, xpub := range []string{
		"xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8",
		"",
		"ünïcödé",
	} {
		got, err := creator.Finalize(interfaces.CommandResponse{
			FinalizeWallet: &interfaces.FinalizeWalletResponse{PubKey: []byte(xpub)},
		})
		require.NoError(t, err)
		assert.Equal(t, xpub, got)
	}
}

func TestFinalize_MalformedResponse(t *testing.T) {
	creator := newTestCreator(t, 2)
	_, err := creator.Finalize(interfaces.CommandResponse{Token: "a"})
	assert.ErrorIs(t, err, interfaces.ErrMalformedResponse)
}

func TestFinalize_VerifierRejects(t *testing.T) {
	creator, err := NewCreator(Config{Threshold: 2, Verifier: rejectingVerifier{}})
	require.NoError(t, err)

	_, err = creator.Finalize(interfaces.CommandResponse{
		FinalizeWallet: &interfaces.FinalizeWalletResponse{PubKey: []byte("xpub")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrUntrustedResponse)
	assert.Contains(t, err.Error(), "bad signature")
}

func TestCombine_Concurrent(t *testing.T) {
	creator := newTestCreator(t, 2)
	contributions := interfaces.ContributionMap{"a": interfaces.EncryptedPubKey("keyA"), "b": interfaces.EncryptedPubKey("keyB")}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(walletID interfaces.WalletID) {
			defer wg.Done()
			req, err := creator.Combine(contributions, "a", walletID)
			assert.NoError(t, err)
			assert.Equal(t, walletID, req.WalletID)
		}(interfaces.WalletID(i))
	}
	wg.Wait()
}
