// Package identity validates public-key identities and verifies schnorr
// signatures over signed events.
package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/gridpool/gridpool/core"
)

// ValidPublicKey reports whether s is a well-formed identity key: exactly
// 64 lowercase hex characters (an x-only secp256k1 point).
func ValidPublicKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Verifier checks signed events against their claimed identity key. It has
// no state and no side effects.
type Verifier struct{}

// NewVerifier creates a new verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyEvent recomputes the canonical digest of the event and verifies
// the schnorr signature against the claimed public key. Malformed keys
// fail fast with ErrInvalidIdentity before any cryptographic work.
func (v *Verifier) VerifyEvent(ev *core.SignedEvent) error {
	if !ValidPublicKey(ev.PubKey) {
		return core.ErrInvalidIdentity
	}

	digest, err := ev.Digest()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// The event ID, when present, must be the digest of what was signed.
	if ev.ID != "" && ev.ID != hex.EncodeToString(digest[:]) {
		return core.ErrSignatureMismatch
	}

	keyBytes, err := hex.DecodeString(ev.PubKey)
	if err != nil {
		return core.ErrInvalidIdentity
	}
	pubKey, err := schnorr.ParsePubKey(keyBytes)
	if err != nil {
		return fmt.Errorf("%w: not a valid curve point", core.ErrInvalidIdentity)
	}

	sigBytes, err := hex.DecodeString(ev.Sig)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", core.ErrSignatureMismatch)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", core.ErrSignatureMismatch)
	}

	if !sig.Verify(digest[:], pubKey) {
		return core.ErrSignatureMismatch
	}

	return nil
}
