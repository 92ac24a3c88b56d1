// Copyright (c) 2025 BVK Chaitanya

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"path"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvk/salesd/users"
	"github.com/bvkgo/kv"
)

const sessionKeyspace = "/sessions"

func sessionKey(userID string) string {
	return path.Join(sessionKeyspace, userID)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login verifies the credentials and issues a fresh token pair, replacing
// any previous refresh session for the user.
func (s *TokenService) Login(ctx context.Context, rw kv.ReadWriter, email, password string) (access, refresh *Token, err error) {
	u, err := users.FindByEmail(ctx, rw, email)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil, nil, fault.Unauthorizedf("invalid credentials")
		}
		return nil, nil, err
	}
	if !u.IsActive || !u.HasAccount {
		return nil, nil, fault.Unauthorizedf("invalid credentials")
	}
	if !users.VerifyPassword(u.PasswordHash, password) {
		return nil, nil, fault.Unauthorizedf("invalid credentials")
	}
	return s.issuePair(ctx, rw, u.ID)
}

func (s *TokenService) issuePair(ctx context.Context, rw kv.ReadWriter, userID string) (access, refresh *Token, err error) {
	if access, err = s.IssueAccess(userID); err != nil {
		return nil, nil, err
	}
	if refresh, err = s.IssueRefresh(userID); err != nil {
		return nil, nil, err
	}
	session := &gobs.UserRefreshSession{
		UserID:      userID,
		TokenHash:   hashToken(refresh.Value),
		TokenJTI:    refresh.JTI,
		ClaimSub:    userID,
		ClaimType:   "refresh",
		ClaimIssuer: s.issuer,
		IssuedAt:    refresh.IssuedAt,
		ExpiresAt:   refresh.ExpiresAt,
	}
	if err := kvutil.Set(ctx, rw, sessionKey(userID), session); err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

// Refresh validates a refresh token against the stored session and rotates
// the pair. The previous refresh token becomes unusable.
func (s *TokenService) Refresh(ctx context.Context, rw kv.ReadWriter, refreshToken string) (access, refresh *Token, err error) {
	t, err := s.Parse(refreshToken, "refresh")
	if err != nil {
		return nil, nil, err
	}
	session, err := kvutil.Get[gobs.UserRefreshSession](ctx, rw, sessionKey(t.Subject))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fault.Unauthorizedf("no active session")
		}
		return nil, nil, err
	}

	hash := hashToken(refreshToken)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(session.TokenHash)) != 1 {
		return nil, nil, fault.Unauthorizedf("invalid refresh token")
	}
	if session.TokenJTI != t.JTI {
		return nil, nil, fault.Unauthorizedf("invalid refresh token")
	}

	u, err := users.Get(ctx, rw, t.Subject)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil, nil, fault.Unauthorizedf("no active session")
		}
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, fault.Unauthorizedf("user is inactive")
	}
	return s.issuePair(ctx, rw, u.ID)
}

// Logout deletes the user's refresh session after validating the presented
// refresh token.
func (s *TokenService) Logout(ctx context.Context, rw kv.ReadWriter, refreshToken string) error {
	t, err := s.Parse(refreshToken, "refresh")
	if err != nil {
		return err
	}
	if err := rw.Delete(ctx, sessionKey(t.Subject)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Authenticate resolves a bearer access token to its user.
func (s *TokenService) Authenticate(ctx context.Context, r kv.Reader, accessToken string) (*gobs.User, error) {
	t, err := s.Parse(accessToken, "access")
	if err != nil {
		return nil, err
	}
	u, err := users.Get(ctx, r, t.Subject)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil, fault.Unauthorizedf("invalid token")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fault.Unauthorizedf("user is inactive")
	}
	return u, nil
}
