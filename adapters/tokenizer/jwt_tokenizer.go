package tokenizer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/ports"
)

const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// JWTTokenizer implements the Tokenizer interface using JWT. The subject
// of every token is the verified identity pubkey.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.PubKey,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		RefreshID: session.RefreshID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// SessionToRefreshToken converts a Session to a refresh JWT token
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.PubKey,
			ID:        session.RefreshID, // Use RefreshID as the JWT ID for the refresh token
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAccess))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	session := &core.Session{
		ID:           claims.ID,
		PubKey:       claims.Subject,
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
		RefreshID:    claims.RefreshID,
	}

	return session, nil
}

// RefreshTokenToSession parses a refresh token and returns the associated session
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceRefresh))

	if err != nil {
		return nil, fmt.Errorf("failed to parse refresh token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	// Refresh tokens carry partial session info only; AccessExpiry stays
	// zeroed and is not consulted on the refresh path.
	session := &core.Session{
		PubKey:        claims.Subject,
		IssuedAt:      claims.IssuedAt.Time,
		RefreshExpiry: claims.ExpiresAt.Time,
		RefreshID:     claims.ID, // The JWT ID is the refresh token ID
	}

	return session, nil
}
