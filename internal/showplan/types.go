/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package showplan implements the show plan synchronization core: a
// repository over the timeslot item grid, a strict ordered reducer for
// client operation batches with optimistic-concurrency preconditions, and
// the audit writer that records each batch verbatim.
package showplan

// OpKind tags a client operation.
type OpKind string

const (
	OpAddItem    OpKind = "AddItem"
	OpMoveItem   OpKind = "MoveItem"
	OpRemoveItem OpKind = "RemoveItem"
)

// Operation is one client-authored edit. Kind-specific fields: AddItem uses
// ContentRef/Channel/Weight; MoveItem uses ItemID/OldChannel/OldWeight plus
// the target Channel/Weight; RemoveItem uses ItemID/Channel/Weight as the
// last position the client observed.
type Operation struct {
	Kind       OpKind `json:"op"`
	ItemID     string `json:"item_id,omitempty"`
	ContentRef string `json:"content_ref,omitempty"`
	Channel    int    `json:"channel"`
	Weight     int    `json:"weight"`
	OldChannel int    `json:"old_channel,omitempty"`
	OldWeight  int    `json:"old_weight,omitempty"`
}

// Batch is a client-submitted unit of work against one timeslot. It is
// never mutated after receipt; on success the ops are persisted verbatim.
type Batch struct {
	TimeslotID string      `json:"timeslot_id"`
	ClientID   string      `json:"client_id"`
	Ops        []Operation `json:"ops"`
}

// OpStatus is the per-operation outcome reported to the caller.
type OpStatus string

const (
	// StatusApplied: the operation committed with the rest of the batch.
	StatusApplied OpStatus = "applied"
	// StatusConcurrentModification: a Move/Remove precondition saw a
	// position that no longer matches; another client edited the plan.
	StatusConcurrentModification OpStatus = "concurrent_modification"
	// StatusContentRefInvalid: an AddItem referenced content that does not
	// resolve in its catalog.
	StatusContentRefInvalid OpStatus = "content_ref_invalid"
	// StatusRolledBack: the operation had been applied before a later one
	// failed; nothing was committed.
	StatusRolledBack OpStatus = "rolled_back"
	// StatusAborted: the operation was never attempted because an earlier
	// one failed.
	StatusAborted OpStatus = "aborted"
)

// OpResult reports one operation's outcome. NewItemID is set for applied
// AddItem operations.
type OpResult struct {
	OpIndex   int      `json:"op_index"`
	Status    OpStatus `json:"status"`
	NewItemID string   `json:"new_item_id,omitempty"`
}

// PlanEntry is one item of a rendered show plan.
type PlanEntry struct {
	ItemID     string   `json:"item_id"`
	Channel    int      `json:"channel"`
	Weight     int      `json:"weight"`
	ContentRef string   `json:"content_ref"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist,omitempty"`
	Genres     []string `json:"genres,omitempty"`
}

// ChannelPlan groups a timeslot's entries by playout lane, ordered by
// weight.
type ChannelPlan struct {
	Channel int         `json:"channel"`
	Items   []PlanEntry `json:"items"`
}

// ItemState is the current location of one plan item, re-read before each
// compare-and-swap check.
type ItemState struct {
	ID         string
	TimeslotID string
	Channel    int
	Weight     int
}
