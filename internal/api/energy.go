package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-energy/internal/audit"
	"github.com/nerrad567/gray-logic-energy/internal/energy"
)

// updateLimitRequest is the body of PUT /energy/plan/limit.
type updateLimitRequest struct {
	DailyLimitKWh *float64 `json:"daily_limit_kwh"`
}

// usageResponse is returned by GET /energy/usage.
type usageResponse struct {
	UsageKWh      float64 `json:"usage_kwh"`
	Formatted     string  `json:"formatted"`
	ActiveDevices int     `json:"active_devices"`
}

// checkResponse is returned by POST /energy/check.
type checkResponse struct {
	energy.Reading
	AlertError string `json:"alert_error,omitempty"`
}

// handleGetUsage returns the current hourly consumption estimate.
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	usage, err := s.monitor.CurrentUsageKWh(ctx)
	if err != nil {
		s.logger.Error("failed to compute usage", "error", err)
		writeInternalError(w, "failed to compute usage")
		return
	}

	active, err := s.registry.GetActiveDevices(ctx)
	if err != nil {
		s.logger.Error("failed to list active devices", "error", err)
		writeInternalError(w, "failed to compute usage")
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		UsageKWh:      usage,
		Formatted:     energy.FormatKWh(usage, s.monitor.DecimalSeparator()),
		ActiveDevices: len(active),
	})
}

// handleCheckOverload runs an overload check immediately.
//
// A failed alert delivery still returns the reading, with 502 and the
// delivery error attached.
func (s *Server) handleCheckOverload(w http.ResponseWriter, r *http.Request) {
	reading, err := s.monitor.CheckForOverload(r.Context())
	if err != nil {
		if reading.CheckedAt.IsZero() {
			s.logger.Error("energy check failed", "error", err)
			writeInternalError(w, "energy check failed")
			return
		}
		s.logger.Warn("energy alert delivery failed", "error", err)
		writeJSON(w, http.StatusBadGateway, checkResponse{Reading: reading, AlertError: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{Reading: reading})
}

// handleGetPlan returns the current energy plan.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.monitor.CurrentPlan(r.Context())
	if err != nil {
		if errors.Is(err, energy.ErrPlanNotFound) {
			writeNotFound(w, "no energy plan configured")
			return
		}
		s.logger.Error("failed to load energy plan", "error", err)
		writeInternalError(w, "failed to load energy plan")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleUpdateLimit sets the daily limit on the current plan.
//
// Request body: {"daily_limit_kwh": 12.5}. Zero and negative limits are
// stored as given.
func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	var req updateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DailyLimitKWh == nil {
		writeBadRequest(w, `"daily_limit_kwh" is required`)
		return
	}
	limit := *req.DailyLimitKWh

	ctx := r.Context()
	if err := s.monitor.UpdateEnergyLimit(ctx, limit); err != nil {
		if errors.Is(err, energy.ErrPlanNotFound) {
			writeNotFound(w, "no energy plan configured")
			return
		}
		s.logger.Error("failed to update energy limit", "error", err)
		writeInternalError(w, "failed to update energy limit")
		return
	}

	s.auditLog(r, audit.ActionLimitUpdate, audit.EntityPlan, "current", map[string]any{
		"daily_limit_kwh": limit,
	})

	plan, err := s.monitor.CurrentPlan(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"daily_limit_kwh": limit})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
