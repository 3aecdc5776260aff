/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package showplan

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/catalog"
	"github.com/friendsincode/huginn_planner/internal/config"
	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/telemetry"
)

// Reducer applies client operation batches. One batch is one transaction:
// operations run strictly in submitted order, each precondition re-reads
// current state, and the first failure rolls the whole batch back. The
// caller-visible contract is all-or-nothing.
//
// Move and Remove preconditions are a compare-and-swap over the item's
// (channel, weight) position rather than a version counter: the plan's
// natural identity in a client's mental model is its visual position, so
// any divergence from the client's last-known position signals a concurrent
// edit and is surfaced, never silently overwritten.
type Reducer struct {
	database *gorm.DB
	backend  config.DatabaseBackend
	repo     *Repository
	audit    *AuditWriter
	bus      events.PubSub
	logger   zerolog.Logger
}

// NewReducer creates a reducer.
func NewReducer(database *gorm.DB, backend config.DatabaseBackend, repo *Repository, audit *AuditWriter, bus events.PubSub, logger zerolog.Logger) *Reducer {
	return &Reducer{
		database: database,
		backend:  backend,
		repo:     repo,
		audit:    audit,
		bus:      bus,
		logger:   logger.With().Str("component", "showplan.reducer").Logger(),
	}
}

// ApplyBatch validates and applies the batch. Precondition failures are
// reported in the per-operation results with a nil error; only store-level
// failures return a non-nil error (and no result array). On success the
// batch is audited in the same transaction, committed, and announced on the
// event bus for the legacy sync adapter and cache invalidation.
func (r *Reducer) ApplyBatch(ctx context.Context, batch Batch) ([]OpResult, error) {
	sess, err := db.NewSession(r.database, r.backend, r.logger)
	if err != nil {
		return nil, err
	}
	if err := sess.Begin(ctx); err != nil {
		return nil, err
	}
	defer sess.Rollback() //nolint:errcheck // no-op after commit

	results := make([]OpResult, 0, len(batch.Ops))
	for i, op := range batch.Ops {
		status, newItemID, err := r.applyOp(ctx, sess, batch.TimeslotID, op)
		if err != nil {
			// Store-level failure; the session has already rolled back.
			telemetry.PlanBatchesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if status != StatusApplied {
			return r.reject(batch, i, status, sess), nil
		}
		results = append(results, OpResult{OpIndex: i, Status: StatusApplied, NewItemID: newItemID})
	}

	if err := r.audit.Record(ctx, sess, batch.TimeslotID, batch.ClientID, batch.Ops); err != nil {
		telemetry.PlanBatchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		telemetry.PlanBatchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	r.logger.Debug().
		Str("timeslot_id", batch.TimeslotID).
		Str("client_id", batch.ClientID).
		Int("ops", len(batch.Ops)).
		Int("queries", sess.Counter()).
		Msg("batch applied")

	telemetry.PlanBatchesTotal.WithLabelValues("applied").Inc()
	for _, op := range batch.Ops {
		telemetry.PlanOpsTotal.WithLabelValues(string(op.Kind), string(StatusApplied)).Inc()
	}

	r.bus.Publish(events.EventPlanUpdated, events.Payload{
		"timeslot_id": batch.TimeslotID,
		"client_id":   batch.ClientID,
		"op_count":    len(batch.Ops),
	})

	return results, nil
}

// applyOp evaluates one operation's preconditions against current state and
// applies it. It returns the operation status, the created item id for adds,
// and a non-nil error only for store-level failures.
func (r *Reducer) applyOp(ctx context.Context, sess *db.Session, timeslotID string, op Operation) (OpStatus, string, error) {
	switch op.Kind {
	case OpAddItem:
		ref, err := catalog.ParseContentRef(op.ContentRef)
		if err != nil {
			return StatusContentRefInvalid, "", nil
		}
		item, err := r.repo.CreateItem(ctx, sess, timeslotID, ref, op.Channel, op.Weight)
		if errors.Is(err, catalog.ErrContentRefInvalid) {
			return StatusContentRefInvalid, "", nil
		}
		if err != nil {
			return "", "", err
		}
		return StatusApplied, item.ID, nil

	case OpMoveItem:
		state, err := r.repo.GetItem(ctx, sess, op.ItemID)
		if errors.Is(err, ErrItemNotFound) {
			return StatusConcurrentModification, "", nil
		}
		if err != nil {
			return "", "", err
		}
		if state.TimeslotID != timeslotID || state.Channel != op.OldChannel || state.Weight != op.OldWeight {
			return StatusConcurrentModification, "", nil
		}
		if err := r.repo.MoveItem(ctx, sess, op.ItemID, op.Channel, op.Weight); err != nil {
			return "", "", err
		}
		return StatusApplied, "", nil

	case OpRemoveItem:
		state, err := r.repo.GetItem(ctx, sess, op.ItemID)
		if errors.Is(err, ErrItemNotFound) {
			// A duplicate remove lands here: current location no longer
			// matches anything, which counts as a concurrent edit.
			return StatusConcurrentModification, "", nil
		}
		if err != nil {
			return "", "", err
		}
		if state.TimeslotID != timeslotID || state.Channel != op.Channel || state.Weight != op.Weight {
			return StatusConcurrentModification, "", nil
		}
		if err := r.repo.DeleteItem(ctx, sess, op.ItemID); err != nil {
			return "", "", err
		}
		return StatusApplied, "", nil

	default:
		if err := sess.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("rollback malformed batch")
		}
		return "", "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// reject rolls back and builds the all-or-nothing result array: operations
// before the failure are reported rolled back, the failing one carries its
// status, and everything after is aborted unattempted.
func (r *Reducer) reject(batch Batch, failedIndex int, status OpStatus, sess *db.Session) []OpResult {
	if err := sess.Rollback(); err != nil {
		r.logger.Error().Err(err).Msg("rollback rejected batch")
	}

	results := make([]OpResult, len(batch.Ops))
	for i := range batch.Ops {
		switch {
		case i < failedIndex:
			results[i] = OpResult{OpIndex: i, Status: StatusRolledBack}
		case i == failedIndex:
			results[i] = OpResult{OpIndex: i, Status: status}
		default:
			results[i] = OpResult{OpIndex: i, Status: StatusAborted}
		}
	}

	telemetry.PlanBatchesTotal.WithLabelValues("rejected").Inc()
	telemetry.PlanOpsTotal.WithLabelValues(string(batch.Ops[failedIndex].Kind), string(status)).Inc()

	r.bus.Publish(events.EventPlanConflict, events.Payload{
		"timeslot_id": batch.TimeslotID,
		"client_id":   batch.ClientID,
		"op_index":    failedIndex,
		"status":      string(status),
	})

	r.logger.Info().
		Str("timeslot_id", batch.TimeslotID).
		Str("client_id", batch.ClientID).
		Int("op_index", failedIndex).
		Str("status", string(status)).
		Msg("batch rejected")

	return results
}
