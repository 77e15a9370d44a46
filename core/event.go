package core

import (
	"crypto/sha256"
	"encoding/json"
)

// KindAuth is the event kind reserved for authentication challenges.
const KindAuth = 22242

// Tag names carried by auth events.
const (
	TagServer    = "server"
	TagChallenge = "challenge"
)

// SignedEvent is a signed statement produced by a client. The JSON field
// names are part of the wire contract with existing signing clients and
// must not change.
type SignedEvent struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Tag returns the value of the first tag with the given name.
func (e *SignedEvent) Tag(name string) (string, bool) {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1], true
		}
	}
	return "", false
}

// Serialize returns the canonical serialization of the event's signed
// fields: the JSON array [0, pubkey, created_at, kind, tags, content].
func (e *SignedEvent) Serialize() ([]byte, error) {
	return json.Marshal([]interface{}{0, e.PubKey, e.CreatedAt, e.Kind, e.Tags, e.Content})
}

// Digest returns the sha256 digest of the canonical serialization. The
// signature is computed over this digest, and the event ID is its hex form.
func (e *SignedEvent) Digest() ([32]byte, error) {
	b, err := e.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}
