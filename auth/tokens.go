// Copyright (c) 2025 BVK Chaitanya

// Package auth issues and validates the access and refresh token pair and
// tracks the single refresh session each user may hold.
package auth

import (
	"fmt"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/google/uuid"
	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

type TokenClaims struct {
	*jwt.Claims

	// Type distinguishes access tokens from refresh tokens.
	Type string `json:"type"`
}

type Token struct {
	Value string

	Subject string
	Type    string
	JTI     string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenService struct {
	secret []byte
	issuer string

	accessExpiry  time.Duration
	refreshExpiry time.Duration

	signer jose.Signer
}

func NewTokenService(secret, issuer string, accessExpiry, refreshExpiry time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create go-jose.v2 pkg signer: %w", err)
	}
	return &TokenService{
		secret:        []byte(secret),
		issuer:        issuer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		signer:        signer,
	}, nil
}

func (s *TokenService) sign(subject, typ, jti string, expiry time.Duration) (*Token, error) {
	now := time.Now().UTC()
	cl := &TokenClaims{
		Claims: &jwt.Claims{
			Subject:  subject,
			Issuer:   s.issuer,
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(expiry)),
		},
		Type: typ,
	}
	value, err := jwt.Signed(s.signer).Claims(cl).CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("could not sign %s token: %w", typ, err)
	}
	return &Token{
		Value:     value,
		Subject:   subject,
		Type:      typ,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(expiry),
	}, nil
}

// IssueAccess returns a signed access token for the given user id.
func (s *TokenService) IssueAccess(userID string) (*Token, error) {
	return s.sign(userID, "access", "", s.accessExpiry)
}

// IssueRefresh returns a signed refresh token with a fresh jti.
func (s *TokenService) IssueRefresh(userID string) (*Token, error) {
	return s.sign(userID, "refresh", uuid.New().String(), s.refreshExpiry)
}

// Parse validates the signature, issuer, expiry and token type and returns
// the embedded claims.
func (s *TokenService) Parse(value, wantType string) (*Token, error) {
	parsed, err := jwt.ParseSigned(value)
	if err != nil {
		return nil, fault.Unauthorizedf("invalid token")
	}
	cl := new(TokenClaims)
	if err := parsed.Claims(s.secret, cl); err != nil {
		return nil, fault.Unauthorizedf("invalid token")
	}
	if cl.Claims == nil || cl.Type != wantType {
		return nil, fault.Unauthorizedf("invalid token type")
	}
	if err := cl.Validate(jwt.Expected{Issuer: s.issuer, Time: time.Now()}); err != nil {
		return nil, fault.Unauthorizedf("invalid or expired token")
	}
	t := &Token{
		Value:   value,
		Subject: cl.Subject,
		Type:    cl.Type,
		JTI:     cl.ID,
	}
	if cl.IssuedAt != nil {
		t.IssuedAt = cl.IssuedAt.Time()
	}
	if cl.Expiry != nil {
		t.ExpiresAt = cl.Expiry.Time()
	}
	return t, nil
}
