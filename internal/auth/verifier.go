package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clubdesk/internal/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

const (
	MethodAPIKey = "api_key"
	MethodJWT    = "jwt"
	MethodDev    = "dev"
)

const (
	ScopeEntitlementsRead = "entitlements.read"
	ScopeUsageWrite       = "usage.write"
	ScopeTokensIssue      = "tokens.issue"
)

// ClientScope reports whether scope may be granted to an organization's API
// client.
func ClientScope(scope string) bool {
	return scope == ScopeEntitlementsRead || scope == ScopeUsageWrite
}

type Service struct {
	Config config.Config
	Now    func() time.Time
}

func NewService(cfg config.Config) *Service {
	return &Service{
		Config: cfg,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// AuthenticateRequest accepts the shared X-API-Key or an org-scoped HS256
// bearer token. In dev mode with no credentials configured every request is
// an anonymous admin.
func (s *Service) AuthenticateRequest(r *http.Request) (Principal, error) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return s.verifyAPIKey(key)
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return s.VerifyJWT(authHeader)
	}
	if s.Config.Dev.Mode && s.Config.Security.APIKey == "" && s.Config.Security.TokenSigningKey == "" {
		return Principal{ActorID: "dev", AuthMethod: MethodDev}, nil
	}
	return Principal{}, ErrUnauthorized
}

func (s *Service) verifyAPIKey(key string) (Principal, error) {
	expected := strings.TrimSpace(s.Config.Security.APIKey)
	if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
		return Principal{}, ErrUnauthorized
	}
	return Principal{ActorID: "api_key", AuthMethod: MethodAPIKey}, nil
}

func (s *Service) VerifyJWT(authHeader string) (Principal, error) {
	headerParts := strings.Fields(authHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "Bearer") {
		return Principal{}, ErrUnauthorized
	}
	rawToken := strings.TrimSpace(headerParts[1])

	signingKey := []byte(s.Config.Security.TokenSigningKey)
	if len(signingKey) == 0 {
		return Principal{}, fmt.Errorf("%w: token signing key not configured", ErrUnauthorized)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	}
	if iss := strings.TrimSpace(s.Config.Auth.Issuer); iss != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(s.Config.Auth.Audience); aud != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(aud))
	}

	parsed, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingKey, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrUnauthorized
	}

	orgID := claimString(claims["org_id"])
	if orgID == "" {
		return Principal{}, ErrUnauthorized
	}
	return Principal{
		OrgID:      orgID,
		ActorID:    claimString(claims["sub"]),
		TokenID:    claimString(claims["jti"]),
		Scopes:     extractScopes(claims["scope"]),
		AuthMethod: MethodJWT,
	}, nil
}

// Authorize checks that principal may use requiredScope on orgID. Admin
// principals pass for every organization.
func (s *Service) Authorize(principal Principal, orgID, requiredScope string) error {
	if principal.Admin() {
		return nil
	}
	if principal.OrgID == "" || principal.OrgID != orgID {
		return ErrForbidden
	}
	return s.ValidateScopes(principal, requiredScope)
}

func (s *Service) ValidateScopes(principal Principal, requiredScope string) error {
	if requiredScope == "" {
		return nil
	}
	for _, scope := range principal.Scopes {
		if scope == "*" || scope == requiredScope {
			return nil
		}
		if strings.HasSuffix(scope, ".*") {
			prefix := strings.TrimSuffix(scope, ".*")
			if strings.HasPrefix(requiredScope, prefix+".") {
				return nil
			}
		}
	}
	return ErrForbidden
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func claimString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func extractScopes(claim any) []string {
	var scopes []string
	switch value := claim.(type) {
	case string:
		for _, item := range strings.Fields(value) {
			if item != "" {
				scopes = append(scopes, item)
			}
		}
	case []any:
		for _, item := range value {
			if scope := claimString(item); scope != "" {
				scopes = append(scopes, scope)
			}
		}
	}
	return scopes
}
