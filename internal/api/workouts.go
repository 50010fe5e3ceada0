package api

import (
	"net/http"
	"strings"

	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/persistence"
	"example.com/kaitrack/internal/progression"
)

// LogWorkoutRequest is the payload for POST /v1/workouts. Date defaults to today
// and any other day is rejected.
type LogWorkoutRequest struct {
	Date            *progression.Date `json:"date"`
	ActivityName    string            `json:"activity_name"`
	Category        string            `json:"category"`
	DurationMinutes *int              `json:"duration_minutes"`
	Notes           string            `json:"notes"`
	IsRestDay       bool              `json:"is_rest_day"`
}

// UpdateWorkoutRequest is the payload for PUT /v1/workouts/{id}.
type UpdateWorkoutRequest struct {
	ActivityName    *string `json:"activity_name"`
	Category        *string `json:"category"`
	DurationMinutes *int    `json:"duration_minutes"`
	ClearDuration   bool    `json:"clear_duration"`
	Notes           *string `json:"notes"`
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.logWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	case http.MethodPut:
		h.updateWorkout(w, r, id)
	case http.MethodDelete:
		h.deleteWorkout(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	var req LogWorkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.LogWorkout(r.Context(), domain.LogWorkoutInput{
		UserID:          claims.Subject,
		Username:        claims.Username,
		Date:            req.Date,
		ActivityName:    req.ActivityName,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		IsRestDay:       req.IsRestDay,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, LogWorkoutResponse{
		Workout:      toWorkoutView(result.Workout),
		Progress:     result.Outcome.Progress,
		BasePoints:   result.Outcome.BasePoints,
		BonusPoints:  result.Outcome.BonusPoints,
		Milestone:    result.Outcome.Milestone,
		TierChanged:  result.Outcome.TierChanged,
		PreviousTier: result.Outcome.PreviousTier,
	})
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit")
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid from date")
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid to date")
		return
	}
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	workouts, next, err := h.service.ListWorkouts(r.Context(), claims.Subject, domain.WorkoutQuery{
		From:   from,
		To:     to,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]WorkoutView, 0, len(workouts))
	for _, wk := range workouts {
		items = append(items, toWorkoutView(wk))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := caller(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}
	workout, err := h.service.GetWorkout(r.Context(), claims.Subject, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := caller(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}
	var req UpdateWorkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	workout, err := h.service.UpdateWorkout(r.Context(), claims.Subject, id, domain.UpdateWorkoutInput{
		ActivityName:    req.ActivityName,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		ClearDuration:   req.ClearDuration,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := caller(w, r, auth.ScopeWorkoutsWrite)
	if !ok {
		return
	}
	if err := h.service.DeleteWorkout(r.Context(), claims.Subject, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
