package core

import "time"

// Challenge represents a pending authentication challenge. It is bound to
// both the server identity that issued it and the claimant identity it was
// issued for, and is consumed exactly once.
type Challenge struct {
	ID             string    // Random single-use challenge token
	ServerPubKey   string    // Identity of the issuing server
	ClaimantPubKey string    // Identity the challenge was issued for
	IssuedAt       time.Time // When the challenge was created
	ExpiresAt      time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AuthMethod identifies how an identity was verified.
type AuthMethod string

// MethodSchnorrChallenge is signature-based verification of a single-use
// challenge.
const MethodSchnorrChallenge AuthMethod = "schnorr-challenge"

// AuthRecord is the durable outcome of a successful authentication.
type AuthRecord struct {
	ID         string     `json:"id"`
	PubKey     string     `json:"pubkey"`
	VerifiedAt time.Time  `json:"verified_at"`
	Method     AuthMethod `json:"method"`
}

// Session represents an authenticated session
type Session struct {
	ID            string    // Unique session identifier
	PubKey        string    // Verified identity of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
