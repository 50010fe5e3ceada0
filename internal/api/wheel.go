package api

import (
	"net/http"

	"example.com/kaitrack/internal/auth"
)

func (h *Handler) wheel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claims, ok := caller(w, r, auth.ScopeWheelSpin, auth.ScopeProfileRead)
	if !ok {
		return
	}

	status, err := h.service.WheelStatus(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WheelStatusView{
		CanSpin:    status.CanSpin,
		LastSpinAt: status.LastSpinAt,
		NextSpinAt: status.NextSpinAt,
	})
}

func (h *Handler) spin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	claims, ok := caller(w, r, auth.ScopeWheelSpin)
	if !ok {
		return
	}

	result, err := h.service.SpinWheel(r.Context(), claims.Subject, claims.Username)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	def := result.Spin.Reward
	writeJSON(w, http.StatusOK, SpinResponse{
		SpinID:      result.Spin.ID,
		Category:    string(def.Category),
		Points:      def.Points,
		Label:       def.Label,
		Duplicate:   result.Spin.Duplicate,
		SpunAt:      result.Spin.SpunAt,
		NextSpinAt:  result.NextSpinAt,
		TierChanged: result.TierChanged,
		Profile:     toProfileView(result.Profile),
	})
}
