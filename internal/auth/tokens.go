package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenTTL = 15 * time.Minute
	maxTokenTTL     = time.Hour
)

var ErrInvalidTokenRequest = errors.New("invalid token request")

type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Scopes    []string  `json:"scopes"`
}

// IssueToken signs a short-lived bearer token for one organization's API
// client. The token carries the configured issuer and audience so
// VerifyJWT accepts it.
func (s *Service) IssueToken(orgID, actor string, scopes []string, ttl time.Duration) (IssuedToken, error) {
	var issued IssuedToken
	if orgID == "" {
		return issued, fmt.Errorf("%w: missing org id", ErrInvalidTokenRequest)
	}
	if len(scopes) == 0 {
		return issued, fmt.Errorf("%w: missing scopes", ErrInvalidTokenRequest)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if ttl > maxTokenTTL {
		return issued, fmt.Errorf("%w: ttl exceeds %s", ErrInvalidTokenRequest, maxTokenTTL)
	}
	if actor == "" {
		actor = "api-client"
	}
	signingKey := []byte(s.Config.Security.TokenSigningKey)
	if len(signingKey) == 0 {
		return issued, errors.New("token signing key not configured")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.NewString()
	claims := jwt.MapClaims{
		"org_id": orgID,
		"sub":    actor,
		"jti":    tokenID,
		"scope":  scopes,
		"iat":    now.Unix(),
		"exp":    expiresAt.Unix(),
	}
	if iss := s.Config.Auth.Issuer; iss != "" {
		claims["iss"] = iss
	}
	if aud := s.Config.Auth.Audience; aud != "" {
		claims["aud"] = aud
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return issued, err
	}
	return IssuedToken{
		Token:     token,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		Scopes:    scopes,
	}, nil
}
