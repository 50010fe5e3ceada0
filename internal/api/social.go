package api

import (
	"net/http"
	"strings"

	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
)

// SendInteractionRequest is the payload for POST /v1/interactions.
type SendInteractionRequest struct {
	ReceiverID string `json:"receiver_id"`
	Type       string `json:"interaction_type"`
}

// RankTierView is one rung of the rank ladder.
type RankTierView struct {
	Label          string `json:"label"`
	ScoreThreshold int64  `json:"score_threshold"`
}

func (h *Handler) rankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := caller(w, r, auth.ScopeRankingsRead); !ok {
		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid page")
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid page_size")
		return
	}

	q := r.URL.Query()
	entries, err := h.service.Rankings(r.Context(), domain.RankingQuery{
		Period:    domain.RankingPeriod(strings.ToLower(q.Get("period"))),
		Sort:      domain.RankingSort(strings.ToLower(q.Get("sort"))),
		Direction: domain.SortDirection(strings.ToLower(q.Get("direction"))),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if page <= 0 {
		page = 1
	}
	items := make([]RankingEntryView, 0, len(entries))
	for _, e := range entries {
		items = append(items, RankingEntryView{
			Position:         e.Position,
			UserID:           e.UserID,
			Username:         e.Username,
			KaiPoints:        e.Score,
			CurrentRank:      e.CurrentTier,
			CurrentStreak:    e.CurrentStreak,
			LongestStreak:    e.LongestStreak,
			EquippedTitle:    e.EquippedTitle,
			EquippedCosmetic: e.EquippedCosmetic,
		})
	}
	writeJSON(w, http.StatusOK, RankingsResponse{Page: page, Items: items})
}

func (h *Handler) ranks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := caller(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRankViews(h.service.RankTable().Tiers()))
}

func toRankViews(tiers []progression.RankTier) []RankTierView {
	out := make([]RankTierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, RankTierView{Label: t.Label, ScoreThreshold: t.ScoreThreshold})
	}
	return out
}

func (h *Handler) interactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		claims, ok := caller(w, r, auth.ScopeInteractionsWrite)
		if !ok {
			return
		}
		var req SendInteractionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, err := h.service.GetOrCreateProfile(r.Context(), claims.Subject, claims.Username); err != nil {
			h.writeServiceError(w, err)
			return
		}
		interaction, err := h.service.SendInteraction(r.Context(), claims.Subject, strings.TrimSpace(req.ReceiverID), domain.InteractionType(req.Type))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toInteractionView(*interaction))
	case http.MethodGet:
		claims, ok := caller(w, r, auth.ScopeProfileRead, auth.ScopeInteractionsWrite)
		if !ok {
			return
		}
		received, err := h.service.ListInteractions(r.Context(), claims.Subject)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		items := make([]InteractionView, 0, len(received))
		for _, i := range received {
			items = append(items, toInteractionView(i))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		methodNotAllowed(w)
	}
}
