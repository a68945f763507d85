package api

import (
	"encoding/json"
	"testing"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRequestFileFormat(t *testing.T) {
	req := interfaces.CommandRequest{
		Token:    "t1",
		WalletID: 12,
		FinalizeWallet: &interfaces.FinalizeWalletRequest{
			EncryptedPubKeys: []interfaces.EncryptedPubKey{{0x01}, {0x02, 0x03}},
		},
	}

	data, err := MarshalRequest(req)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "t1", raw["token"])
	assert.Equal(t, float64(12), raw["wallet_id"])
	assert.NotContains(t, raw, "init_wallet")
	assert.Equal(t, map[string]any{"encrypted_pub_keys": []any{"AQ==", "AgM="}}, raw["finalize_wallet"])

	decoded, err := UnmarshalRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestUnmarshalRequestRejectsAmbiguousPayload(t *testing.T) {
	_, err := UnmarshalRequest([]byte(`{"token":"a","wallet_id":1}`))
	require.Error(t, err)

	_, err = UnmarshalRequest([]byte(`{"token":"a","wallet_id":1,"init_wallet":{},"finalize_wallet":{"encrypted_pub_keys":[]}}`))
	require.Error(t, err)

	_, err = UnmarshalRequest([]byte(`{`))
	require.Error(t, err)

	req, err := UnmarshalRequest([]byte(`{"token":"a","wallet_id":1,"init_wallet":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "init_wallet", req.Kind())
}

func TestUnmarshalResponse(t *testing.T) {
	resp, err := UnmarshalResponse([]byte(`{"token":"a","wallet_id":-1,"finalize_wallet":{"pub_key":"eHB1Yg=="}}`))
	require.NoError(t, err)
	assert.Equal(t, interfaces.WalletID(-1), resp.WalletID)
	require.NotNil(t, resp.FinalizeWallet)
	assert.Equal(t, []byte("xpub"), resp.FinalizeWallet.PubKey)
	assert.Nil(t, resp.Signature)

	resp, err = UnmarshalResponse([]byte(`{"token":"a","wallet_id":1}`))
	require.NoError(t, err)
	assert.Nil(t, resp.FinalizeWallet)
}

func TestUnmarshalContribution(t *testing.T) {
	c, err := UnmarshalContribution([]byte(`{"token":"a","wallet_id":1,"encrypted_pub_key":"AQI="}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, c.EncryptedPubKey)

	_, err = UnmarshalContribution([]byte(`{"wallet_id":1}`))
	require.Error(t, err)
}

func TestContributionMapFromJSON(t *testing.T) {
	m, err := ContributionMapFromJSON(1, []*ContributionJSON{
		{Token: "a", WalletID: 1, EncryptedPubKey: []byte{1}},
		{Token: "b", WalletID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, interfaces.EncryptedPubKey{1}, m["a"])
	v, found := m["b"]
	assert.True(t, found)
	assert.Nil(t, v)

	_, err = ContributionMapFromJSON(2, []*ContributionJSON{{Token: "a", WalletID: 1}})
	require.Error(t, err)

	_, err = ContributionMapFromJSON(1, []*ContributionJSON{{Token: "a", WalletID: 1}, {Token: "a", WalletID: 1}})
	require.Error(t, err)
}
