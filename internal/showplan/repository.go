/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package showplan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_planner/internal/catalog"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/models"
)

// ErrItemNotFound marks a plan item id that no longer exists.
var ErrItemNotFound = errors.New("timeslot item not found")

// Repository owns all reads and writes of timeslot_items. Every method runs
// on the session threaded through the call; the repository never opens its
// own connection, so callers control transaction boundaries.
type Repository struct {
	resolver *catalog.Resolver
	logger   zerolog.Logger
}

// NewRepository creates a repository.
func NewRepository(resolver *catalog.Resolver, logger zerolog.Logger) *Repository {
	return &Repository{
		resolver: resolver,
		logger:   logger.With().Str("component", "showplan.repository").Logger(),
	}
}

// ListItems returns the timeslot's plan grouped by channel, ordered by
// weight within each channel (ties by insertion order).
func (r *Repository) ListItems(ctx context.Context, sess *db.Session, timeslotID string) ([]ChannelPlan, error) {
	rows, err := sess.FetchAll(ctx, `
		SELECT ti.id, ti.channel, ti.weight, ti.track_id, ti.managed_item_id,
		       t.title AS track_title, t.artist AS track_artist, t.genres AS track_genres,
		       m.title AS managed_title
		FROM timeslot_items ti
		LEFT JOIN tracks t ON t.id = ti.track_id
		LEFT JOIN managed_items m ON m.id = ti.managed_item_id
		WHERE ti.timeslot_id = ?
		ORDER BY ti.channel ASC, ti.weight ASC, ti.created_at ASC`, timeslotID)
	if err != nil {
		return nil, err
	}

	plan := []ChannelPlan{}
	for _, row := range rows {
		entry, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		channel := row.Int("channel")
		if len(plan) == 0 || plan[len(plan)-1].Channel != channel {
			plan = append(plan, ChannelPlan{Channel: channel})
		}
		last := &plan[len(plan)-1]
		last.Items = append(last.Items, entry)
	}
	return plan, nil
}

func entryFromRow(row db.Row) (PlanEntry, error) {
	entry := PlanEntry{
		ItemID:  row.String("id"),
		Channel: row.Int("channel"),
		Weight:  row.Int("weight"),
	}
	switch {
	case !row.IsNull("track_id"):
		entry.ContentRef = catalog.ContentRef{Kind: catalog.KindCentral, ID: row.String("track_id")}.String()
		entry.Title = row.String("track_title")
		entry.Artist = row.String("track_artist")
		genres, err := catalog.GenreList(row.String("track_genres"))
		if err != nil {
			return PlanEntry{}, fmt.Errorf("decode genres for item %s: %w", entry.ItemID, err)
		}
		entry.Genres = genres
	case !row.IsNull("managed_item_id"):
		entry.ContentRef = catalog.ContentRef{Kind: catalog.KindManaged, ID: row.String("managed_item_id")}.String()
		entry.Title = row.String("managed_title")
	}
	return entry, nil
}

// GetItem re-reads an item's current location.
func (r *Repository) GetItem(ctx context.Context, sess *db.Session, itemID string) (ItemState, error) {
	row, err := sess.FetchOne(ctx, `
		SELECT id, timeslot_id, channel, weight FROM timeslot_items WHERE id = ?`, itemID)
	if err != nil {
		return ItemState{}, err
	}
	if row == nil {
		return ItemState{}, ErrItemNotFound
	}
	return ItemState{
		ID:         row.String("id"),
		TimeslotID: row.String("timeslot_id"),
		Channel:    row.Int("channel"),
		Weight:     row.Int("weight"),
	}, nil
}

// CreateItem resolves the content reference and inserts a new item at the
// requested position. Unresolvable references fail with
// catalog.ErrContentRefInvalid.
func (r *Repository) CreateItem(ctx context.Context, sess *db.Session, timeslotID string, ref catalog.ContentRef, channel, weight int) (*models.TimeslotItem, error) {
	if err := r.resolver.Resolve(ctx, sess, ref); err != nil {
		return nil, err
	}

	item := &models.TimeslotItem{
		ID:         uuid.NewString(),
		TimeslotID: timeslotID,
		Channel:    channel,
		Weight:     weight,
		CreatedAt:  time.Now().UTC(),
	}
	item.UpdatedAt = item.CreatedAt
	switch ref.Kind {
	case catalog.KindCentral:
		item.TrackID = &ref.ID
	case catalog.KindManaged:
		item.ManagedItemID = &ref.ID
	}

	_, err := sess.Exec(ctx, `
		INSERT INTO timeslot_items (id, timeslot_id, track_id, managed_item_id, channel, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.TimeslotID, item.TrackID, item.ManagedItemID,
		item.Channel, item.Weight, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// MoveItem updates an item's location unconditionally. Precondition checks
// are the reducer's responsibility, not this method's.
func (r *Repository) MoveItem(ctx context.Context, sess *db.Session, itemID string, channel, weight int) error {
	_, err := sess.Exec(ctx, `
		UPDATE timeslot_items SET channel = ?, weight = ?, updated_at = ? WHERE id = ?`,
		channel, weight, time.Now().UTC(), itemID)
	return err
}

// DeleteItem removes an item. Deleting an absent item is a no-op: the
// reducer validates existence in the same transaction before calling this.
func (r *Repository) DeleteItem(ctx context.Context, sess *db.Session, itemID string) error {
	_, err := sess.Exec(ctx, `DELETE FROM timeslot_items WHERE id = ?`, itemID)
	return err
}
