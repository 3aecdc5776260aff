/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog resolves show plan content references against the two
// content sources: the central track library and the managed item store
// (jingles, beds, pre-records).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_planner/internal/db"
	"github.com/friendsincode/huginn_planner/internal/pgarray"
)

// ErrContentRefInvalid marks a content reference that does not resolve in
// its owning catalog.
var ErrContentRefInvalid = errors.New("content reference does not resolve")

// Kind identifies the owning catalog of a content reference.
type Kind string

const (
	// KindCentral references a track in the central music library.
	KindCentral Kind = "CentralDB"
	// KindManaged references a managed item (jingles, beds, pre-records).
	KindManaged Kind = "ManagedDB"
)

// ContentRef addresses one piece of content. The wire form is
// "<kind>-<id>", e.g. "CentralDB-5f0c..." or "ManagedDB-9a31...".
type ContentRef struct {
	Kind Kind
	ID   string
}

// ParseContentRef splits a wire-form reference. The id part may itself
// contain dashes (uuids), so only the first dash separates.
func ParseContentRef(s string) (ContentRef, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ContentRef{}, fmt.Errorf("malformed content ref %q: %w", s, ErrContentRefInvalid)
	}
	kind := Kind(parts[0])
	switch kind {
	case KindCentral, KindManaged:
		return ContentRef{Kind: kind, ID: parts[1]}, nil
	default:
		return ContentRef{}, fmt.Errorf("unknown content source %q: %w", parts[0], ErrContentRefInvalid)
	}
}

func (r ContentRef) String() string {
	return string(r.Kind) + "-" + r.ID
}

// Resolver checks content references against their owning catalog on a
// caller-provided session, so resolution shares the caller's transaction.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger.With().Str("component", "catalog").Logger()}
}

// Resolve returns nil when the reference exists, ErrContentRefInvalid when
// it does not, and the underlying error for store failures.
func (r *Resolver) Resolve(ctx context.Context, sess *db.Session, ref ContentRef) error {
	var query string
	switch ref.Kind {
	case KindCentral:
		query = `SELECT id FROM tracks WHERE id = ?`
	case KindManaged:
		query = `SELECT id FROM managed_items WHERE id = ?`
	default:
		return fmt.Errorf("unknown content source %q: %w", ref.Kind, ErrContentRefInvalid)
	}

	row, err := sess.FetchOne(ctx, query, ref.ID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("%s: %w", ref, ErrContentRefInvalid)
	}
	return nil
}

// TrackGenres reads and decodes a track's genres array column.
func (r *Resolver) TrackGenres(ctx context.Context, sess *db.Session, trackID string) ([]string, error) {
	row, err := sess.FetchOne(ctx, `SELECT genres FROM tracks WHERE id = ?`, trackID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("track %s: %w", trackID, ErrContentRefInvalid)
	}
	return GenreList(row.String("genres"))
}

// GenreList decodes a genres array literal into a flat string slice.
func GenreList(literal string) ([]string, error) {
	if literal == "" {
		return nil, nil
	}
	decoded, err := pgarray.Decode(literal)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(decoded))
	for _, v := range decoded {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
