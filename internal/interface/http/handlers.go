package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/superteam-academy/xp-engine/internal/application/command"
	"github.com/superteam-academy/xp-engine/internal/application/query"
	"github.com/superteam-academy/xp-engine/internal/domain/leaderboard"
	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
	"github.com/superteam-academy/xp-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "XP Engine API",
		"version":     "v1",
		"description": "Reconciliation and leaderboard ranking engine for learner XP",
		"endpoints": map[string]string{
			"health":      "/health",
			"leaderboard": "/api/v1/leaderboard",
			"stats":       "/api/v1/stats",
			"sync_status": "/api/v1/sync/status",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	spec := leaderboard.QuerySpec{
		Timeframe: leaderboard.Timeframe(getQueryParam(r, "timeframe", "")),
		SortBy:    xp.SortField(getQueryParam(r, "sort_by", "")),
		Limit:     getQueryParamInt(r, "limit", 0),
		Offset:    getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), spec)
	if err != nil {
		s.writeHandlerError(w, err, "failed to get leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserRank handles GET /api/v1/users/{id}/rank
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetUserRankHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rank handler not configured")
		return
	}

	q := query.GetUserRankQuery{
		UserID: r.PathValue("id"),
		SortBy: xp.SortField(getQueryParam(r, "sort_by", "")),
	}

	rank, err := s.deps.GetUserRankHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeHandlerError(w, err, "failed to get user rank")
		return
	}

	writeJSON(w, http.StatusOK, rank)
}

// handleGetStats handles GET /api/v1/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetXPStatsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Stats handler not configured")
		return
	}

	stats, err := s.deps.GetXPStatsHandler.Handle(r.Context())
	if err != nil {
		s.writeHandlerError(w, err, "failed to get xp stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStreak handles GET /api/v1/users/{id}/streak
func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStreakHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Streak handler not configured")
		return
	}

	view, err := s.deps.GetStreakHandler.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeHandlerError(w, err, "failed to get streak")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handleUpdateStreak handles POST /api/v1/users/{id}/streak
func (s *Server) handleUpdateStreak(w http.ResponseWriter, r *http.Request) {
	if s.deps.UpdateStreakHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Streak handler not configured")
		return
	}

	var body struct {
		UseFreeze bool `json:"use_freeze"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cmd := command.UpdateStreakCommand{
		UserID:    r.PathValue("id"),
		UseFreeze: body.UseFreeze,
		Now:       time.Now().UTC(),
	}

	result, err := s.deps.UpdateStreakHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeHandlerError(w, err, "failed to update streak")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY & WALLET HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRecordActivity handles POST /api/v1/activity
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordActivityHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Activity handler not configured")
		return
	}

	var body struct {
		UserID  string `json:"user_id"`
		Type    string `json:"type"`
		XPDelta int64  `json:"xp_delta"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cmd := command.RecordActivityCommand{
		UserID:    body.UserID,
		Type:      command.ActivityType(body.Type),
		XPDelta:   body.XPDelta,
		Timestamp: time.Now().UTC(),
	}

	result, err := s.deps.RecordActivityHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeHandlerError(w, err, "failed to record activity")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// handleBindWallet handles POST /api/v1/wallets
func (s *Server) handleBindWallet(w http.ResponseWriter, r *http.Request) {
	if s.deps.BindWalletHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Wallet handler not configured")
		return
	}

	var body struct {
		UserID              string `json:"user_id"`
		WalletAddress       string `json:"wallet_address"`
		LeaderboardEligible *bool  `json:"leaderboard_eligible,omitempty"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cmd := command.BindWalletCommand{
		UserID:              body.UserID,
		WalletAddress:       body.WalletAddress,
		LeaderboardEligible: body.LeaderboardEligible,
	}

	if err := s.deps.BindWalletHandler.Handle(r.Context(), cmd); err != nil {
		s.writeHandlerError(w, err, "failed to bind wallet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "bound"})
}

// handleGetWallet handles GET /api/v1/wallets/{address}
// It serves fresh data: the ledger balance is re-read before responding.
func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reconciler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reconciler not configured")
		return
	}

	wallet := xp.WalletAddress(r.PathValue("address"))

	record, err := s.deps.Reconciler.FetchUserData(r.Context(), wallet)
	if err != nil {
		s.writeHandlerError(w, err, "failed to fetch wallet data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":          record.UserID,
		"wallet_address":   record.WalletAddress,
		"total_xp":         record.TotalXP,
		"on_chain_xp":      record.OnChainXP,
		"off_chain_xp":     record.OffChainXP,
		"level":            record.Level(),
		"title":            record.Title(),
		"current_streak":   record.CurrentStreak,
		"last_synced_at":   record.LastSyncedAt,
		"last_activity_at": record.LastActivityAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTriggerSync handles POST /api/v1/sync (admin only).
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reconciler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reconciler not configured")
		return
	}

	stats, err := s.deps.Reconciler.RunSync(r.Context(), "manual")
	if err != nil {
		if errors.Is(err, command.ErrSyncAlreadyRunning) {
			writeJSONError(w, http.StatusConflict, "sync_in_progress", "A reconciliation run is already in progress")
			return
		}
		s.writeHandlerError(w, err, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleSyncStatus handles GET /api/v1/sync/status
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reconciler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reconciler not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": s.deps.Reconciler.State(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeHandlerError maps domain errors to HTTP status codes.
func (s *Server) writeHandlerError(w http.ResponseWriter, err error, msg string) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrRecordExists):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error(msg, logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

// decodeJSONBody decodes a JSON request body with a size cap.
func decodeJSONBody(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return decoder.Decode(dest)
}
