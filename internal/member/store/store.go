// Package store defines persistence for alumni records. Two implementations
// are provided: an in-memory store for tests and demo runs, and a PostgreSQL
// store for deployments.
package store

import (
	"context"
	"errors"

	"github.com/pych2536/rpca70/internal/member/models"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("record not found")

// Store persists alumni records keyed by their unique sequence number.
// The store exclusively owns all records; implementations return copies so
// callers never mutate stored state through shared references.
type Store interface {
	// Get returns the record with the given sequence number.
	Get(ctx context.Context, seq int) (*models.Record, error)
	// FindByName returns the record whose first and last name match exactly,
	// case-insensitively. Inputs are expected to be trimmed by the caller.
	FindByName(ctx context.Context, first, last string) (*models.Record, error)
	// SearchFreeText returns records whose first name, last name, or nickname
	// contains the query, case-insensitively.
	SearchFreeText(ctx context.Context, query string) ([]*models.Record, error)
	// ListAll returns every record, unconfirmed before confirmed, then by
	// ascending sequence number.
	ListAll(ctx context.Context) ([]*models.Record, error)
	// ReplaceAll atomically discards all existing records and stores the given
	// set. On error the previous contents are left untouched.
	ReplaceAll(ctx context.Context, records []*models.Record) error
	// Update overwrites the stored record with the same sequence number.
	Update(ctx context.Context, rec *models.Record) error
	// ResetStatus returns a record to unconfirmed with the placeholder
	// last-updated string. Idempotent.
	ResetStatus(ctx context.Context, seq int) error
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
