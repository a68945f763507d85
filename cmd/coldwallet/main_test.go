package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	out, _, err := runCaptured(t, args...)
	return out, err
}

func runCaptured(t *testing.T, args ...string) (string, string, error) {
	var out, logs bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &logs
	err := app.Run(append([]string{"coldwallet"}, args...))
	return out.String(), logs.String(), err
}

func writeJSON(t *testing.T, path string, v any) {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestInitWritesRequests(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "init", "--wallet-id", "5", "--tokens", "a,b", "--out-dir", dir)
	require.NoError(t, err)

	for _, token := range []string{"a", "b"} {
		data, err := os.ReadFile(filepath.Join(dir, "init-"+token+".json"))
		require.NoError(t, err)

		req, err := api.UnmarshalRequest(data)
		require.NoError(t, err)
		assert.Equal(t, interfaces.Token(token), req.Token)
		assert.Equal(t, interfaces.WalletID(5), req.WalletID)
		assert.NotNil(t, req.InitWallet)
	}
}

func TestInitRejectsTokenCountMismatch(t *testing.T) {
	_, err := run(t, "init", "--wallet-id", "5", "--threshold", "3", "--tokens", "a,b", "--out-dir", t.TempDir())
	require.Error(t, err)
}

func TestCombineAndFinalize(t *testing.T) {
	dir := t.TempDir()
	archiveDir := t.TempDir()

	writeJSON(t, filepath.Join(dir, "b.json"), api.ContributionJSON{Token: "b", WalletID: 9, EncryptedPubKey: []byte{0xBB}})
	writeJSON(t, filepath.Join(dir, "a.json"), api.ContributionJSON{Token: "a", WalletID: 9, EncryptedPubKey: []byte{0xAA}})

	finalizePath := filepath.Join(dir, "finalize.json")
	_, err := run(t, "combine",
		"--wallet-id", "9",
		"--element-token", "b",
		"--out", finalizePath,
		"--archive", "file://"+archiveDir,
		filepath.Join(dir, "b.json"), filepath.Join(dir, "a.json"))
	require.NoError(t, err)

	data, err := os.ReadFile(finalizePath)
	require.NoError(t, err)
	req, err := api.UnmarshalRequest(data)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Token("b"), req.Token)
	require.NotNil(t, req.FinalizeWallet)
	assert.Equal(t, []interfaces.EncryptedPubKey{{0xAA}, {0xBB}}, req.FinalizeWallet.EncryptedPubKeys)

	archived, err := os.ReadDir(filepath.Join(archiveDir, "requests"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	responsePath := filepath.Join(dir, "response.json")
	writeJSON(t, responsePath, api.CommandResponseJSON{
		Token:          "b",
		WalletID:       9,
		FinalizeWallet: &api.FinalizeWalletResponseJSON{PubKey: []byte("xpubExample")},
	})

	out, err := run(t, "finalize", responsePath)
	require.NoError(t, err)
	assert.Equal(t, "xpubExample", strings.TrimSpace(out))
}

func TestCombineRejectsIncompleteSet(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "a.json"), api.ContributionJSON{Token: "a", WalletID: 1, EncryptedPubKey: []byte{1}})

	_, err := run(t, "combine", "--wallet-id", "1", "--element-token", "a", filepath.Join(dir, "a.json"))
	require.ErrorIs(t, err, interfaces.ErrArityMismatch)

	_, err = run(t, "combine", "--wallet-id", "1", "--threshold", "1", "--element-token", "z", filepath.Join(dir, "a.json"))
	require.ErrorIs(t, err, interfaces.ErrCorrelation)
}

func TestFinalizeWithXpubVerifier(t *testing.T) {
	dir := t.TempDir()
	responsePath := filepath.Join(dir, "response.json")
	writeJSON(t, responsePath, api.CommandResponseJSON{
		Token:          "a",
		WalletID:       1,
		FinalizeWallet: &api.FinalizeWalletResponseJSON{PubKey: []byte("not-an-xpub")},
	})

	_, err := run(t, "finalize", "--verify", "xpub", responsePath)
	require.ErrorIs(t, err, interfaces.ErrUntrustedResponse)

	_, err = run(t, "finalize", "--verify", "unknown", responsePath)
	require.Error(t, err)
}

func TestWalletIDOutOfRange(t *testing.T) {
	dir := t.TempDir()

	for _, walletID := range []string{"4294967338", "2147483648", "-2147483649"} {
		_, err := run(t, "init", "--wallet-id", walletID, "--tokens", "a,b", "--out-dir", dir)
		require.Error(t, err, walletID)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = run(t, "init", "--wallet-id", "-2147483648", "--tokens", "a,b", "--out-dir", dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "init-a.json"))
	require.NoError(t, err)
	req, err := api.UnmarshalRequest(data)
	require.NoError(t, err)
	assert.Equal(t, interfaces.WalletID(-2147483648), req.WalletID)
}

func TestInitRejectsPathTokens(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "out")

	for _, tokens := range []string{"../x,b", "a,sub/b", "..,b", `a,b\c`} {
		_, err := run(t, "init", "--wallet-id", "1", "--tokens", tokens, "--out-dir", outDir)
		require.Error(t, err, tokens)
	}

	_, err := os.Stat(filepath.Join(root, "init-..", "x.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "init-...json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFinalizeStdoutHoldsOnlyXpub(t *testing.T) {
	dir := t.TempDir()
	responsePath := filepath.Join(dir, "response.json")
	writeJSON(t, responsePath, api.CommandResponseJSON{
		Token:          "a",
		WalletID:       1,
		FinalizeWallet: &api.FinalizeWalletResponseJSON{PubKey: []byte("xpubABC")},
	})

	out, logs, err := runCaptured(t, "finalize", responsePath)
	require.NoError(t, err)
	assert.Equal(t, "xpubABC\n", out)
	assert.Contains(t, logs, "Wallet finalized")
}
