/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package showplan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_planner/internal/db"
)

// AuditWriter persists the verbatim operation list of each applied batch.
// Record runs on the reducer's session so the audit row and the plan
// mutations commit or roll back together. There is no query API; the log
// exists for offline replay and debugging.
type AuditWriter struct {
	logger zerolog.Logger
}

// NewAuditWriter creates an audit writer.
func NewAuditWriter(logger zerolog.Logger) *AuditWriter {
	return &AuditWriter{logger: logger.With().Str("component", "showplan.audit").Logger()}
}

// Record appends one row with the serialized batch.
func (w *AuditWriter) Record(ctx context.Context, sess *db.Session, timeslotID, clientID string, ops []Operation) error {
	encoded, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encode change ops: %w", err)
	}
	_, err = sess.Exec(ctx, `
		INSERT INTO plan_change_logs (timeslot_id, client_id, change_ops, created_at)
		VALUES (?, ?, ?, ?)`,
		timeslotID, clientID, string(encoded), time.Now().UTC())
	return err
}
