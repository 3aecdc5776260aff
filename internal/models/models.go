/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Timeslot is a scheduled broadcast slot for which a show plan is built.
type Timeslot struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string `gorm:"type:varchar(255)"`
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Timeslot) TableName() string {
	return "timeslots"
}

// Track is an entry in the central music catalog.
type Track struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	Title    string `gorm:"type:varchar(255);index"`
	Artist   string `gorm:"type:varchar(255);index"`
	Duration time.Duration
	// Genres holds a postgres array literal (e.g. {rock,indie}); decoded
	// with pgarray on the read path.
	Genres    string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Track) TableName() string {
	return "tracks"
}

// ManagedItem is an ad-hoc managed asset (jingles, beds, pre-records) that
// lives outside the central track catalog.
type ManagedItem struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string `gorm:"type:varchar(255);index"`
	Folder    string `gorm:"type:varchar(255)"`
	Duration  time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (ManagedItem) TableName() string {
	return "managed_items"
}

// TimeslotItem is one entry placed in a timeslot's show plan. Exactly one of
// TrackID and ManagedItemID is populated. Channel is the playout lane and
// Weight orders items within a channel.
type TimeslotItem struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	TimeslotID    string  `gorm:"type:uuid;index:idx_timeslot_items_timeslot;not null"`
	TrackID       *string `gorm:"type:uuid;index"`
	ManagedItemID *string `gorm:"type:uuid;index"`
	Channel       int     `gorm:"not null"`
	Weight        int     `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM.
func (TimeslotItem) TableName() string {
	return "timeslot_items"
}

// PlanChangeLog records one applied operation batch verbatim, for offline
// replay and debugging. Written in the same transaction as the plan
// mutations it describes.
type PlanChangeLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TimeslotID string `gorm:"type:uuid;index:idx_plan_change_logs_timeslot;not null"`
	ClientID   string `gorm:"type:varchar(64);not null"`
	ChangeOps  string `gorm:"type:text;not null"` // JSON-encoded operation list
	CreatedAt  time.Time
}

// TableName returns the table name for GORM.
func (PlanChangeLog) TableName() string {
	return "plan_change_logs"
}
