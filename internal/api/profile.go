package api

import (
	"net/http"

	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/domain"
)

// UpdateProfileRequest is the payload for PATCH /v1/profile. Omitted fields are left
// unchanged; an empty equip value unequips.
type UpdateProfileRequest struct {
	Username         *string `json:"username"`
	EquippedTitle    *string `json:"equipped_title"`
	EquippedCosmetic *string `json:"equipped_cosmetic"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		claims, ok := caller(w, r, auth.ScopeProfileRead, auth.ScopeProfileWrite)
		if !ok {
			return
		}
		profile, err := h.service.GetOrCreateProfile(r.Context(), claims.Subject, claims.Username)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileView(*profile))
	case http.MethodPatch:
		claims, ok := caller(w, r, auth.ScopeProfileWrite)
		if !ok {
			return
		}
		var req UpdateProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, err := h.service.GetOrCreateProfile(r.Context(), claims.Subject, claims.Username); err != nil {
			h.writeServiceError(w, err)
			return
		}
		profile, err := h.service.UpdateProfile(r.Context(), claims.Subject, domain.UpdateProfileInput{
			Username:         req.Username,
			EquippedTitle:    req.EquippedTitle,
			EquippedCosmetic: req.EquippedCosmetic,
		})
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileView(*profile))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claims, ok := caller(w, r, auth.ScopeProfileRead, auth.ScopeProfileWrite)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsView{
		Progress:              stats.Progress,
		WorkoutsThisWeek:      stats.WorkoutsThisWeek,
		WorkoutsThisMonth:     stats.WorkoutsThisMonth,
		TotalWorkouts:         stats.TotalWorkouts,
		TierProgress:          stats.TierProgress,
		StreakStatus:          stats.StreakStatus,
		DaysSinceLastActivity: stats.DaysSinceLastActivity,
		WeekStart:             stats.WeekStart,
		MonthStart:            stats.MonthStart,
	})
}
