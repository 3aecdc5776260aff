/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/huginn_planner/internal/telemetry"
)

const startTimeKey = "telemetry:start_time"

// RegisterCallbacks hooks statement metrics into gorm's CRUD pipeline.
// Register this on connections whose traffic goes through gorm (the legacy
// consumer store); raw Session statements record their metrics directly.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return firstErr(
		cb.Query().Before("gorm:query").Register("telemetry:before_query", recordStart),
		cb.Query().After("gorm:query").Register("telemetry:after_query", recordMetrics("query")),
		cb.Create().Before("gorm:create").Register("telemetry:before_create", recordStart),
		cb.Create().After("gorm:create").Register("telemetry:after_create", recordMetrics("create")),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", recordStart),
		cb.Update().After("gorm:update").Register("telemetry:after_update", recordMetrics("update")),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", recordStart),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", recordMetrics("delete")),
	)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func recordStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func recordMetrics(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		value, exists := db.InstanceGet(startTimeKey)
		if !exists {
			return
		}
		start, ok := value.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics refreshes the pool gauge; called periodically by
// the server's background worker.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
