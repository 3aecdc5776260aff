/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package legacy

import "time"

// Listing mirrors one channel lane of a committed show plan in the legacy
// consumer's shape: the downstream playout system reads one listing per
// (timeslot, channel) with positional entries.
type Listing struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TimeslotID string `gorm:"type:uuid;index:idx_legacy_listings_timeslot;not null"`
	Channel    int    `gorm:"not null"`
	Name       string `gorm:"type:varchar(255)"`
	Entries    []Entry `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM.
func (Listing) TableName() string {
	return "legacy_listings"
}

// Entry is one positioned item inside a legacy listing.
type Entry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ListingID  uint   `gorm:"index:idx_legacy_entries_listing;not null"`
	Position   int    `gorm:"not null"`
	ContentRef string `gorm:"type:varchar(128);not null"`
	Title      string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM.
func (Entry) TableName() string {
	return "legacy_entries"
}
