/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/catalog"
	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/legacy"
	"github.com/friendsincode/huginn_planner/internal/models"
	"github.com/friendsincode/huginn_planner/internal/showplan"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: nil, // Disable GORM logging in tests
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to obtain sql pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return database
}

// TestPlanSyncRoundTrip drives a batch through the full pipeline: reducer
// commit on the primary store, plan update event, legacy mirror.
func TestPlanSyncRoundTrip(t *testing.T) {
	primary := setupTestDB(t)
	if err := db.Migrate(primary); err != nil {
		t.Fatalf("migrate primary: %v", err)
	}
	legacyDB := setupTestDB(t)

	seed := []any{
		&models.Timeslot{ID: "slot-1", Title: "Drive Time"},
		&models.Track{ID: "track-1", Title: "Song A", Artist: "Artist A"},
		&models.ManagedItem{ID: "jingle-1", Title: "Top Hour Sting"},
	}
	for _, record := range seed {
		if err := primary.Create(record).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	bus := events.NewBus()
	repo := showplan.NewRepository(catalog.NewResolver(zerolog.Nop()), zerolog.Nop())
	reducer := showplan.NewReducer(primary, config.DatabaseSQLite, repo, showplan.NewAuditWriter(zerolog.Nop()), bus, zerolog.Nop())

	legacySvc := legacy.NewService(primary, config.DatabaseSQLite, legacyDB, repo, bus, zerolog.Nop())
	if err := legacySvc.Migrate(); err != nil {
		t.Fatalf("migrate legacy: %v", err)
	}

	published := bus.Subscribe(events.EventLegacyPublished)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go legacySvc.Start(ctx)
	time.Sleep(20 * time.Millisecond)

	results, err := reducer.ApplyBatch(ctx, showplan.Batch{
		TimeslotID: "slot-1",
		ClientID:   "client-int",
		Ops: []showplan.Operation{
			{Kind: showplan.OpAddItem, ContentRef: "CentralDB-track-1", Channel: 1, Weight: 0},
			{Kind: showplan.OpAddItem, ContentRef: "ManagedDB-jingle-1", Channel: 1, Weight: 1},
		},
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	for _, res := range results {
		if res.Status != showplan.StatusApplied {
			t.Fatalf("unexpected result: %+v", res)
		}
	}

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for legacy publish")
	}

	var entries int64
	if err := legacyDB.Model(&legacy.Entry{}).Count(&entries).Error; err != nil {
		t.Fatalf("count legacy entries: %v", err)
	}
	if entries != 2 {
		t.Fatalf("expected 2 legacy entries, got %d", entries)
	}

	var audit int64
	if err := primary.Model(&models.PlanChangeLog{}).Count(&audit).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if audit != 1 {
		t.Fatalf("expected 1 audit row, got %d", audit)
	}
}
