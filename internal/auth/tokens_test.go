package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueTokenRoundTrip(t *testing.T) {
	svc := newTestService()

	issued, err := svc.IssueToken("org-9", "", []string{ScopeEntitlementsRead, ScopeUsageWrite}, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if !issued.ExpiresAt.Equal(time.Unix(1000, 0).Add(defaultTokenTTL)) {
		t.Fatalf("unexpected expiry %s", issued.ExpiresAt)
	}

	principal, err := svc.VerifyJWT("Bearer " + issued.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if principal.OrgID != "org-9" || principal.ActorID != "api-client" || principal.TokenID != issued.TokenID {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if err := svc.Authorize(principal, "org-9", ScopeUsageWrite); err != nil {
		t.Fatalf("issued scopes should authorize: %v", err)
	}
}

func TestIssueTokenExpires(t *testing.T) {
	svc := newTestService()
	issued, err := svc.IssueToken("org-9", "scoreboard", []string{ScopeEntitlementsRead}, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	svc.Now = func() time.Time { return time.Unix(1000, 0).Add(2 * time.Minute) }
	if _, err := svc.VerifyJWT("Bearer " + issued.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestIssueTokenValidation(t *testing.T) {
	svc := newTestService()
	cases := map[string]struct {
		org    string
		scopes []string
		ttl    time.Duration
	}{
		"missing org":    {org: "", scopes: []string{ScopeEntitlementsRead}},
		"missing scopes": {org: "org-1"},
		"ttl too long":   {org: "org-1", scopes: []string{ScopeEntitlementsRead}, ttl: 2 * time.Hour},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.IssueToken(tc.org, "", tc.scopes, tc.ttl); !errors.Is(err, ErrInvalidTokenRequest) {
				t.Fatalf("expected ErrInvalidTokenRequest, got %v", err)
			}
		})
	}

	svc.Config.Security.TokenSigningKey = ""
	if _, err := svc.IssueToken("org-1", "", []string{ScopeEntitlementsRead}, 0); err == nil {
		t.Fatalf("expected error without signing key")
	}
}
