/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package legacy pushes committed show plans into the downstream playout
// system's store. Publishing is best-effort: it runs after the primary
// commit, off the event bus, and a failure never invalidates the commit.
package legacy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/showplan"
	"github.com/friendsincode/huginn_planner/internal/telemetry"
)

// Service mirrors committed plans into the legacy store.
type Service struct {
	primary *gorm.DB
	backend config.DatabaseBackend
	legacy  *gorm.DB
	repo    *showplan.Repository
	bus     events.PubSub
	logger  zerolog.Logger
}

// NewService creates the sync adapter. primary is the plan store the fresh
// post-commit read comes from; legacy is the consumer's own database.
func NewService(primary *gorm.DB, backend config.DatabaseBackend, legacy *gorm.DB, repo *showplan.Repository, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		primary: primary,
		backend: backend,
		legacy:  legacy,
		repo:    repo,
		bus:     bus,
		logger:  logger.With().Str("component", "legacy").Logger(),
	}
}

// Migrate applies the legacy store schema.
func (s *Service) Migrate() error {
	if err := s.legacy.AutoMigrate(&Listing{}, &Entry{}); err != nil {
		return fmt.Errorf("auto-migrate legacy store: %w", err)
	}
	return nil
}

// Start consumes plan update events until ctx is cancelled. Publishing runs
// here, decoupled from the request path, so a slow legacy store never
// delays the primary response.
func (s *Service) Start(ctx context.Context) {
	updated := s.bus.Subscribe(events.EventPlanUpdated)
	defer s.bus.Unsubscribe(events.EventPlanUpdated, updated)

	s.logger.Info().Msg("legacy sync started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("legacy sync stopping")
			return
		case payload, ok := <-updated:
			if !ok {
				return
			}
			timeslotID, _ := payload["timeslot_id"].(string)
			if timeslotID == "" {
				continue
			}
			if err := s.Publish(ctx, timeslotID); err != nil {
				// Best-effort: log and count, never propagate. Retry is
				// driven out of band by re-publishing the timeslot.
				s.logger.Error().Err(err).Str("timeslot_id", timeslotID).Msg("legacy publish failed")
				telemetry.LegacyPublishTotal.WithLabelValues("error").Inc()
				s.bus.Publish(events.EventLegacyPublishFailed, events.Payload{
					"timeslot_id": timeslotID,
					"error":       err.Error(),
				})
				continue
			}
			telemetry.LegacyPublishTotal.WithLabelValues("ok").Inc()
			s.bus.Publish(events.EventLegacyPublished, events.Payload{"timeslot_id": timeslotID})
		}
	}
}

// Publish re-reads the committed plan and rewrites the legacy listings for
// the timeslot. Delete-then-insert inside one legacy transaction makes
// re-publishing idempotent.
func (s *Service) Publish(ctx context.Context, timeslotID string) error {
	sess, err := db.NewSession(s.primary, s.backend, s.logger)
	if err != nil {
		return err
	}
	plan, err := s.repo.ListItems(ctx, sess, timeslotID)
	if err != nil {
		return fmt.Errorf("read committed plan: %w", err)
	}

	return s.legacy.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []Listing
		if err := tx.Where("timeslot_id = ?", timeslotID).Find(&stale).Error; err != nil {
			return err
		}
		for _, listing := range stale {
			if err := tx.Where("listing_id = ?", listing.ID).Delete(&Entry{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("timeslot_id = ?", timeslotID).Delete(&Listing{}).Error; err != nil {
			return err
		}

		for _, channel := range plan {
			listing := Listing{
				TimeslotID: timeslotID,
				Channel:    channel.Channel,
				Name:       fmt.Sprintf("Channel %d", channel.Channel),
			}
			if err := tx.Create(&listing).Error; err != nil {
				return err
			}
			for pos, item := range channel.Items {
				entry := Entry{
					ListingID:  listing.ID,
					Position:   pos,
					ContentRef: item.ContentRef,
					Title:      item.Title,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
