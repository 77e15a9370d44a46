package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/ports"
)

// EventVerifier checks a signed event against its claimed identity key.
type EventVerifier interface {
	VerifyEvent(ev *core.SignedEvent) error
}

// AuthService handles authentication business logic: challenge issuance,
// signed-event verification, and session token lifecycle.
type AuthService struct {
	issuer     *Issuer
	verifier   EventVerifier
	challenges ports.ChallengeStore
	records    ports.AuthRecordStore
	sessions   ports.SessionStore
	tokenizer  ports.Tokenizer
	eventPub   ports.EventPublisher

	serverPubKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	issuer *Issuer,
	verifier EventVerifier,
	challenges ports.ChallengeStore,
	records ports.AuthRecordStore,
	sessions ports.SessionStore,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	serverPubKey string,
) *AuthService {
	return &AuthService{
		issuer:       issuer,
		verifier:     verifier,
		challenges:   challenges,
		records:      records,
		sessions:     sessions,
		tokenizer:    tokenizer,
		eventPub:     eventPub,
		serverPubKey: serverPubKey,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
	}
}

// CreateChallenge issues a new authentication challenge for the claimant
func (s *AuthService) CreateChallenge(ctx context.Context, claimantPubKey string) (*core.Challenge, error) {
	return s.issuer.Issue(ctx, s.serverPubKey, claimantPubKey)
}

// Login verifies a signed challenge event and, on success, records the
// authentication and mints session tokens. Every failure consumes the
// challenge: the client must request a fresh one.
func (s *AuthService) Login(ctx context.Context, ev *core.SignedEvent) (string, string, error) {
	challengeID, ok := ev.Tag(core.TagChallenge)
	if !ok {
		return "", "", core.ErrUnknownChallenge
	}

	// Single consume point: whoever takes the challenge owns this
	// verification attempt; a concurrent or repeated attempt fails.
	ch, err := s.challenges.Take(ctx, challengeID)
	if err != nil {
		return "", "", err
	}

	if ch.Expired(time.Now()) {
		return "", "", core.ErrChallengeExpired
	}

	if ev.Kind != core.KindAuth {
		return "", "", core.ErrChallengeMismatch
	}
	serverTag, ok := ev.Tag(core.TagServer)
	if !ok || serverTag != ch.ServerPubKey {
		return "", "", core.ErrChallengeMismatch
	}
	if ev.PubKey != ch.ClaimantPubKey {
		return "", "", core.ErrChallengeMismatch
	}

	if err := s.verifier.VerifyEvent(ev); err != nil {
		return "", "", err
	}

	now := time.Now()
	record := &core.AuthRecord{
		ID:         uuid.New().String(),
		PubKey:     ev.PubKey,
		VerifiedAt: now,
		Method:     core.MethodSchnorrChallenge,
	}
	if err := s.records.SaveAuthRecord(ctx, record); err != nil {
		return "", "", fmt.Errorf("failed to persist auth record: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, record.PubKey, record.ID); err != nil {
		// The identity is already verified and recorded; a missed
		// notification is not worth failing the login over.
		fmt.Printf("Warning: Failed to publish login event: %v\n", err)
	}

	session := &core.Session{
		ID:            uuid.New().String(),
		PubKey:        ev.PubKey,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.sessions.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the remainder of its life
	remainingTime := time.Until(session.RefreshExpiry)
	if err := s.sessions.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	now := time.Now()
	newSession := &core.Session{
		ID:            uuid.New().String(),
		PubKey:        session.PubKey,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token gets an invalidation record, with a minimum
	// TTL so it can't be replayed under clock skew.
	var remainingTime time.Duration
	if time.Now().After(session.RefreshExpiry) {
		remainingTime = time.Hour
	} else {
		remainingTime = time.Until(session.RefreshExpiry)
	}

	if err := s.sessions.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.PubKey, session.RefreshID); err != nil {
		// The token is already invalidated in the store, which is the
		// critical part
		fmt.Printf("Warning: Failed to publish logout event: %v\n", err)
	}

	return nil
}

// ValidateAccessToken parses an access token and checks it against the
// invalidation store
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Invalidating a refresh token takes its access tokens down with it
	if session.RefreshID != "" {
		invalidated, err := s.sessions.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}
