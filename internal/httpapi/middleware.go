package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"clubdesk/internal/auth"
	"clubdesk/internal/entitlements"
	"clubdesk/internal/plans"
)

type engineContextKey struct{}

// EngineFromContext returns the engine loaded for the request's
// organization by LoadEngine.
func EngineFromContext(ctx context.Context) (*entitlements.Engine, bool) {
	e, ok := ctx.Value(engineContextKey{}).(*entitlements.Engine)
	return e, ok
}

func withEngine(ctx context.Context, e *entitlements.Engine) context.Context {
	return context.WithValue(ctx, engineContextKey{}, e)
}

// Authenticate resolves the caller and checks it may act on the {orgID} path
// variable with scope.
func (h *Handler) Authenticate(scope string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := h.Auth.AuthenticateRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if err := h.Auth.Authorize(principal, mux.Vars(r)["orgID"], scope); err != nil {
				writeError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// LoadEngine builds the organization's engine once per request and stores
// it in the request context.
func (h *Handler) LoadEngine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := mux.Vars(r)["orgID"]
		e, err := h.Entitlements.Engine(r.Context(), orgID)
		if err != nil {
			h.Logger.Error().Err(err).Str("org_id", orgID).Msg("load entitlements")
			writeError(w, http.StatusServiceUnavailable, "entitlements_unavailable", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withEngine(r.Context(), e)))
	})
}

// RequireFeature rejects the request with 402 when the organization's plan
// lacks f. It must run after LoadEngine.
func (h *Handler) RequireFeature(f plans.Feature) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			e, _ := EngineFromContext(r.Context())
			err := entitlements.RequireFeature(e, f)
			var upgrade *entitlements.UpgradeRequiredError
			if errors.As(err, &upgrade) {
				h.deny(r, "upgrade_required")
				writeError(w, http.StatusPaymentRequired, "upgrade_required", map[string]any{
					"feature":       upgrade.Feature,
					"current_tier":  upgrade.Current,
					"required_tier": upgrade.Required,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive rejects organizations whose subscription has lapsed.
func (h *Handler) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, _ := EngineFromContext(r.Context())
		if err := entitlements.RequireActive(e); err != nil {
			h.deny(r, "subscription_inactive")
			writeError(w, http.StatusPaymentRequired, "subscription_inactive", map[string]any{
				"status": e.SubscriptionStatus(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit applies the plan's API requests-per-minute allowance.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, _ := EngineFromContext(r.Context())
		allowed, wait := h.Limiter.AllowPlan(e)
		if !allowed {
			h.deny(r, "rate_limited")
			retryAfter := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited", map[string]any{
				"retry_after_seconds": retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIClientGate applies the apiAccess feature check and the plan rate limit
// to organization-scoped token callers. Operator keys pass through.
func (h *Handler) APIClientGate(next http.Handler) http.Handler {
	gated := h.RequireFeature(plans.APIAccess)(h.RateLimit(next))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.Admin() {
			next.ServeHTTP(w, r)
			return
		}
		gated.ServeHTTP(w, r)
	})
}

func (h *Handler) deny(r *http.Request, reason string) {
	if h.Denials != nil {
		h.Denials.RecordDeny(mux.Vars(r)["orgID"], reason)
	}
}
