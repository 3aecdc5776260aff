/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/showplan"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.database.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlanGet renders the current show plan for a timeslot, grouped by
// channel. Cache hits skip the store entirely.
func (s *Server) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	timeslotID := chi.URLParam(r, "timeslotID")
	if timeslotID == "" {
		writeError(w, http.StatusBadRequest, "timeslot_id_required")
		return
	}

	if s.planCache != nil {
		if plan, found := s.planCache.Get(r.Context(), timeslotID); found {
			writeJSON(w, http.StatusOK, planResponse{TimeslotID: timeslotID, Channels: plan})
			return
		}
	}

	sess, err := db.NewSession(s.database, s.cfg.DBBackend, s.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	plan, err := s.repo.ListItems(r.Context(), sess, timeslotID)
	if err != nil {
		s.logger.Error().Err(err).Str("timeslot_id", timeslotID).Msg("list show plan failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if s.planCache != nil {
		s.planCache.Set(r.Context(), timeslotID, plan)
	}
	writeJSON(w, http.StatusOK, planResponse{TimeslotID: timeslotID, Channels: plan})
}

type planResponse struct {
	TimeslotID string                 `json:"timeslot_id"`
	Channels   []showplan.ChannelPlan `json:"channels"`
}

type planOpsRequest struct {
	ClientID string               `json:"client_id"`
	Ops      []showplan.Operation `json:"ops"`
}

type planOpsResponse struct {
	TimeslotID string              `json:"timeslot_id"`
	Committed  bool                `json:"committed"`
	Results    []showplan.OpResult `json:"results"`
}

// handlePlanOps applies a batch of edit operations atomically. A rejected
// batch is still a 200: the response reports per-operation outcomes and
// committed=false.
func (s *Server) handlePlanOps(w http.ResponseWriter, r *http.Request) {
	timeslotID := chi.URLParam(r, "timeslotID")
	if timeslotID == "" {
		writeError(w, http.StatusBadRequest, "timeslot_id_required")
		return
	}

	var req planOpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id_required")
		return
	}
	if len(req.Ops) == 0 {
		writeError(w, http.StatusBadRequest, "ops_required")
		return
	}

	batch := showplan.Batch{
		TimeslotID: timeslotID,
		ClientID:   req.ClientID,
		Ops:        req.Ops,
	}

	results, err := s.reducer.ApplyBatch(r.Context(), batch)
	if err != nil {
		var qerr *db.QueryError
		if errors.As(err, &qerr) {
			s.logger.Error().Err(err).Str("timeslot_id", timeslotID).Msg("plan batch query failed")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_operation")
		return
	}

	writeJSON(w, http.StatusOK, planOpsResponse{
		TimeslotID: timeslotID,
		Committed:  committed(results),
		Results:    results,
	})
}

// committed reports whether every operation in the batch applied.
func committed(results []showplan.OpResult) bool {
	for _, res := range results {
		if res.Status != showplan.StatusApplied {
			return false
		}
	}
	return len(results) > 0
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
