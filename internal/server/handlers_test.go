/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/huginn_planner/internal/catalog"
	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/models"
	"github.com/friendsincode/huginn_planner/internal/showplan"
)

const testTimeslot = "slot-1"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("obtain sql pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	trackID := "track-1"
	seed := []any{
		&models.Timeslot{ID: testTimeslot, Title: "Breakfast Show"},
		&models.Track{ID: trackID, Title: "Opening Song", Artist: "The Band"},
		&models.TimeslotItem{ID: "item-1", TimeslotID: testTimeslot, TrackID: &trackID, Channel: 1, Weight: 0},
	}
	for _, record := range seed {
		if err := database.Create(record).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	bus := events.NewBus()
	repo := showplan.NewRepository(catalog.NewResolver(zerolog.Nop()), zerolog.Nop())
	reducer := showplan.NewReducer(database, config.DatabaseSQLite, repo, showplan.NewAuditWriter(zerolog.Nop()), bus, zerolog.Nop())

	s := &Server{
		cfg:      &config.Config{DBBackend: config.DatabaseSQLite},
		logger:   zerolog.Nop(),
		database: database,
		bus:      bus,
		repo:     repo,
		reducer:  reducer,
	}
	s.router = chi.NewRouter()
	s.configureRoutes()
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetPlan(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/timeslots/"+testTimeslot+"/plan", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp planResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TimeslotID != testTimeslot || len(resp.Channels) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Channels[0].Items[0].ContentRef != "CentralDB-track-1" {
		t.Fatalf("unexpected entry: %+v", resp.Channels[0].Items[0])
	}
}

func TestPostPlanOpsApplied(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(planOpsRequest{
		ClientID: "client-a",
		Ops: []showplan.Operation{
			{Kind: showplan.OpMoveItem, ItemID: "item-1", OldChannel: 1, OldWeight: 0, Channel: 2, Weight: 1},
		},
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/api/v1/timeslots/"+testTimeslot+"/plan/ops", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp planOpsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Committed {
		t.Fatalf("expected committed batch: %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].Status != showplan.StatusApplied {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestPostPlanOpsRejectedIsStillOK(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(planOpsRequest{
		ClientID: "client-a",
		Ops: []showplan.Operation{
			{Kind: showplan.OpMoveItem, ItemID: "item-1", OldChannel: 9, OldWeight: 9, Channel: 2, Weight: 1},
		},
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/api/v1/timeslots/"+testTimeslot+"/plan/ops", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for rejected batch, got %d", rec.Code)
	}
	var resp planOpsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Committed {
		t.Fatal("rejected batch reported as committed")
	}
	if resp.Results[0].Status != showplan.StatusConcurrentModification {
		t.Fatalf("unexpected status: %s", resp.Results[0].Status)
	}
}

func TestPostPlanOpsValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing client id", `{"ops":[{"op":"AddItem"}]}`},
		{"empty ops", `{"client_id":"c","ops":[]}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			"/api/v1/timeslots/"+testTimeslot+"/plan/ops", bytes.NewReader([]byte(tc.body))))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	s.router = chi.NewRouter()
	s.router.Use(securityHeadersMiddleware)
	s.configureRoutes()

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing X-Content-Type-Options header")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set on plain http")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	s.router.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS behind https proxy")
	}
}
