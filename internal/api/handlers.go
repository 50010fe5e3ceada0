// Package api exposes the kaitrack HTTP endpoints.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	log     *logrus.Entry
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{service: service, log: log.WithField("component", "api")}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/v1/profile", h.profile)
	mux.HandleFunc("/v1/profile/stats", h.stats)
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/wheel", h.wheel)
	mux.HandleFunc("/v1/wheel/spin", h.spin)
	mux.HandleFunc("/v1/rankings", h.rankings)
	mux.HandleFunc("/v1/ranks", h.ranks)
	mux.HandleFunc("/v1/interactions", h.interactions)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// caller returns the authenticated claims when at least one of scopes is granted.
// It writes the error response itself and reports false otherwise.
func caller(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if len(scopes) > 0 && !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil, false
	}
	return claims, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var cooldown *domain.SpinCooldownError
	switch {
	case errors.As(err, &cooldown):
		retry := int(math.Ceil(time.Until(cooldown.NextSpinAt).Seconds()))
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "spin_not_eligible", err.Error())
	case errors.Is(err, domain.ErrSpinNotEligible):
		writeError(w, http.StatusTooManyRequests, "spin_not_eligible", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, progression.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrWorkoutExists), errors.Is(err, domain.ErrInteractionExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrNotToday), errors.Is(err, domain.ErrSelfInteraction), errors.Is(err, domain.ErrNotOwned):
		writeError(w, http.StatusUnprocessableEntity, "unprocessable", err.Error())
	case errors.Is(err, reward.ErrInvalidConfiguration), errors.Is(err, progression.ErrInvalidConfiguration):
		h.log.WithError(err).Error("configuration error while serving request")
		writeError(w, http.StatusInternalServerError, "server_error", "server misconfigured")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func queryDate(r *http.Request, key string) (*progression.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := progression.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
