package identity

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpool/gridpool/core"
)

func TestValidPublicKey(t *testing.T) {
	valid := strings.Repeat("0f", 32)

	cases := []struct {
		name string
		key  string
		want bool
	}{
		{"valid lowercase hex", valid, true},
		{"all zeros", strings.Repeat("0", 64), true},
		{"too short", valid[:63], false},
		{"too long", valid + "a", false},
		{"empty", "", false},
		{"uppercase hex", strings.ToUpper(valid), false},
		{"non-hex character", strings.Repeat("0", 63) + "g", false},
		{"whitespace", strings.Repeat("0", 63) + " ", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidPublicKey(tc.key))
		})
	}
}

func signedEvent(t *testing.T, priv *btcec.PrivateKey, content string) *core.SignedEvent {
	t.Helper()

	ev := &core.SignedEvent{
		PubKey:    hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey())),
		CreatedAt: time.Now().Unix(),
		Kind:      core.KindAuth,
		Tags: [][]string{
			{core.TagServer, strings.Repeat("ab", 32)},
			{core.TagChallenge, "test-challenge"},
		},
		Content: content,
	}

	digest, err := ev.Digest()
	require.NoError(t, err)
	ev.ID = hex.EncodeToString(digest[:])

	sig, err := schnorr.Sign(priv, digest[:])
	require.NoError(t, err)
	ev.Sig = hex.EncodeToString(sig.Serialize())

	return ev
}

func TestVerifyEventValid(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, priv, "hello")
	require.NoError(t, NewVerifier().VerifyEvent(ev))
}

func TestVerifyEventTamperedContent(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, priv, "hello")
	ev.Content = "tampered"
	ev.ID = "" // force digest recomputation past the ID check

	err = NewVerifier().VerifyEvent(ev)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestVerifyEventIDMismatch(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, priv, "hello")
	ev.Content = "tampered"

	err = NewVerifier().VerifyEvent(ev)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestVerifyEventWrongKey(t *testing.T) {
	signer, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, signer, "hello")
	ev.PubKey = hex.EncodeToString(schnorr.SerializePubKey(other.PubKey()))
	digest, err := ev.Digest()
	require.NoError(t, err)
	ev.ID = hex.EncodeToString(digest[:])

	err = NewVerifier().VerifyEvent(ev)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestVerifyEventMalformedKey(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, priv, "hello")
	ev.PubKey = "not-a-key"

	err = NewVerifier().VerifyEvent(ev)
	assert.ErrorIs(t, err, core.ErrInvalidIdentity)
}

func TestVerifyEventMalformedSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ev := signedEvent(t, priv, "hello")
	ev.Sig = "zz"

	err = NewVerifier().VerifyEvent(ev)
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}
