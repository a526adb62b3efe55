package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clubdesk/internal/auth"
	"clubdesk/internal/entitlements"
	"clubdesk/internal/plans"
)

// EngineLoader builds an engine for one organization.
type EngineLoader interface {
	Engine(ctx context.Context, orgID string) (*entitlements.Engine, error)
}

// UsageRecorder applies a usage delta and returns the new counter value.
type UsageRecorder interface {
	RecordUsageEvent(ctx context.Context, orgID, resource string, delta int64) (int64, error)
}

// DenyRecorder is notified when middleware rejects a request.
type DenyRecorder interface {
	RecordDeny(orgID, reason string)
}

type Handler struct {
	Auth         *auth.Service
	Entitlements EngineLoader
	Usage        UsageRecorder
	Limiter      *entitlements.RateLimiter
	Denials      DenyRecorder
	Health       *HealthChecker
	Metrics      http.Handler
	Logger       zerolog.Logger
}

func NewHandler(authSvc *auth.Service, loader EngineLoader, usage UsageRecorder, denials DenyRecorder, health *HealthChecker, logger zerolog.Logger) *Handler {
	return &Handler{
		Auth:         authSvc,
		Entitlements: loader,
		Usage:        usage,
		Limiter:      entitlements.NewRateLimiter(),
		Denials:      denials,
		Health:       health,
		Metrics:      promhttp.Handler(),
		Logger:       logger,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	if h.Health != nil {
		r.HandleFunc("/healthz", h.Health.Liveness).Methods(http.MethodGet)
		r.HandleFunc("/readyz", h.Health.Readiness).Methods(http.MethodGet)
	}
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/v1/plans", h.handlePlans).Methods(http.MethodGet)

	issue := validOrgID(h.Authenticate(auth.ScopeTokensIssue)(h.LoadEngine(
		h.RequireFeature(plans.APIAccess)(http.HandlerFunc(h.handleIssueToken)))))
	r.Handle("/v1/orgs/{orgID}/tokens", issue).Methods(http.MethodPost)

	write := r.PathPrefix("/v1/orgs/{orgID}/usage").Subrouter()
	write.Use(validOrgID, h.Authenticate(auth.ScopeUsageWrite), h.LoadEngine, h.APIClientGate, h.RequireActive)
	write.HandleFunc("/{resource}", h.handleRecordUsage).Methods(http.MethodPost)

	read := r.PathPrefix("/v1/orgs/{orgID}").Subrouter()
	read.Use(validOrgID, h.Authenticate(auth.ScopeEntitlementsRead), h.LoadEngine, h.APIClientGate)
	read.HandleFunc("/entitlements", h.handleEntitlements).Methods(http.MethodGet)
	read.HandleFunc("/features/{feature}", h.handleFeature).Methods(http.MethodGet)

	return r
}

func validOrgID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(mux.Vars(r)["orgID"]); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_org_id", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": entitlements.New(nil, nil, nil).PlanComparison(),
	})
}

type quotaView struct {
	Resource  plans.Resource `json:"resource"`
	Used      int64          `json:"used"`
	Limit     *int64         `json:"limit"`
	Remaining *int64         `json:"remaining"`
}

type entitlementsView struct {
	OrgID        string                       `json:"org_id"`
	Plan         plans.Tier                   `json:"plan"`
	PlanName     string                       `json:"plan_name"`
	Status       entitlements.Status          `json:"status"`
	Trialing     bool                         `json:"trialing"`
	TrialEndsAt  *time.Time                   `json:"trial_ends_at,omitempty"`
	Expired      bool                         `json:"expired"`
	CanUpgrade   bool                         `json:"can_upgrade"`
	CanDowngrade bool                         `json:"can_downgrade"`
	Quotas       []quotaView                  `json:"quotas"`
	Features     []entitlements.FeatureStatus `json:"features"`
}

func (h *Handler) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	e, _ := EngineFromContext(r.Context())
	view := entitlementsView{
		OrgID:        mux.Vars(r)["orgID"],
		Plan:         e.CurrentPlan(),
		PlanName:     plans.DisplayName(e.CurrentPlan()),
		Status:       e.SubscriptionStatus(),
		Trialing:     e.IsTrialing(),
		Expired:      e.IsExpired(),
		CanUpgrade:   e.CanUpgrade(),
		CanDowngrade: e.CanDowngrade(),
		Features:     e.FeatureList(),
	}
	if end, ok := e.TrialEndsAt(); ok {
		view.TrialEndsAt = &end
	}
	usage := e.Usage()
	plan := e.Plan()
	for _, res := range plans.Resources() {
		q := quotaView{Resource: res, Used: usage.Count(res)}
		if limit, ok := plan.Limit(res); ok {
			remaining, _ := e.Remaining(res)
			q.Limit = &limit
			q.Remaining = &remaining
		}
		view.Quotas = append(view.Quotas, q)
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleFeature(w http.ResponseWriter, r *http.Request) {
	f, ok := plans.ParseFeature(mux.Vars(r)["feature"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_feature", nil)
		return
	}
	e, _ := EngineFromContext(r.Context())
	required, _ := plans.MinimumTier(f)
	writeJSON(w, http.StatusOK, map[string]any{
		"feature":       f,
		"enabled":       e.HasFeature(f),
		"required_tier": required,
	})
}

func (h *Handler) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	res, ok := plans.ParseResource(mux.Vars(r)["resource"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_resource", nil)
		return
	}
	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "zero_delta", nil)
		return
	}

	e, _ := EngineFromContext(r.Context())
	orgID := mux.Vars(r)["orgID"]
	if req.Delta > 0 {
		current := e.Usage().Count(res)
		limit, limited := e.Plan().Limit(res)
		exceeded := func() {
			h.deny(r, "quota_exceeded")
			writeError(w, http.StatusPaymentRequired, "quota_exceeded", map[string]any{
				"resource":  res,
				"current":   current,
				"requested": req.Delta,
				"limit":     limit,
			})
		}
		if req.Delta > math.MaxInt64-current {
			if limited {
				exceeded()
				return
			}
			writeError(w, http.StatusBadRequest, "delta_out_of_range", nil)
			return
		}
		// The last unit added must still fit under the ceiling.
		if err := entitlements.RequireCapacity(e, res, current+req.Delta-1); err != nil {
			exceeded()
			return
		}
	}

	used, err := h.Usage.RecordUsageEvent(r.Context(), orgID, res.String(), req.Delta)
	if err != nil {
		h.Logger.Error().Err(err).Str("org_id", orgID).Str("resource", res.String()).Msg("record usage")
		writeError(w, http.StatusInternalServerError, "usage_write_failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": res, "used": used})
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if principal, _ := auth.PrincipalFromContext(r.Context()); !principal.Admin() {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req struct {
		Actor      string   `json:"actor"`
		Scopes     []string `json:"scopes"`
		TTLSeconds int      `json:"ttl_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(req.Scopes) == 0 {
		req.Scopes = []string{auth.ScopeEntitlementsRead}
	}
	for _, scope := range req.Scopes {
		if !auth.ClientScope(scope) {
			writeError(w, http.StatusBadRequest, "invalid_scope", map[string]any{"scope": scope})
			return
		}
	}

	orgID := mux.Vars(r)["orgID"]
	issued, err := h.Auth.IssueToken(orgID, req.Actor, req.Scopes, time.Duration(req.TTLSeconds)*time.Second)
	if errors.Is(err, auth.ErrInvalidTokenRequest) {
		writeError(w, http.StatusBadRequest, "invalid_token_request", map[string]any{"detail": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Str("org_id", orgID).Msg("issue token")
		writeError(w, http.StatusInternalServerError, "token_issue_failed", nil)
		return
	}
	h.Logger.Info().Str("org_id", orgID).Str("token_id", issued.TokenID).Strs("scopes", issued.Scopes).Msg("api token issued")
	writeJSON(w, http.StatusCreated, issued)
}

func writeError(w http.ResponseWriter, status int, code string, fields map[string]any) {
	body := map[string]any{"error": code}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
