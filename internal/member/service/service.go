// Package service holds the record lifecycle logic: name search, view,
// confirmation, allow-listed form edits, status resets, and the admin
// dashboard listing. Mutations always stamp the tracking fields.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pych2536/rpca70/internal/auth"
	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/metrics"
	"github.com/pych2536/rpca70/internal/member/models"
	"github.com/pych2536/rpca70/internal/member/store"
	"github.com/pych2536/rpca70/internal/settings"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

// stampLayout renders last-updated values like "15 April 2024, 09:30".
const stampLayout = "02 January 2006, 15:04"

// Service orchestrates record reads and edits.
type Service struct {
	store    store.Store
	settings *settings.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	loc      *time.Location
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone used for last-updated stamps. The default
// is the process-local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// New constructs the record service. metrics may be nil.
func New(st store.Store, set *settings.Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:    st,
		settings: set,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) stamp() string {
	return s.now().In(s.loc).Format(stampLayout)
}

// Search finds a record by exact first and last name, case-insensitively,
// and returns its sequence number.
func (s *Service) Search(ctx context.Context, first, last string) (int, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" || last == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "first and last name are required")
	}
	rec, err := s.store.FindByName(ctx, first, last)
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return rec.SequenceID, nil
}

// View returns one record by sequence number.
func (s *Service) View(ctx context.Context, seq int) (*models.Record, error) {
	rec, err := s.store.Get(ctx, seq)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return rec, nil
}

// Confirm marks a record confirmed and stamps the current time. Re-confirming
// keeps the status and refreshes the stamp.
func (s *Service) Confirm(ctx context.Context, seq int) error {
	rec, err := s.store.Get(ctx, seq)
	if err != nil {
		return wrapStoreErr(err)
	}
	rec.Status = models.StatusConfirmed
	rec.LastUpdated = s.stamp()
	if err := s.store.Update(ctx, rec); err != nil {
		return wrapStoreErr(err)
	}
	s.metrics.IncrementConfirmations()
	return nil
}

// ApplyEdit applies a partial patch keyed by external column labels to one
// record. Only labels the catalog resolves are applied; the sequence
// identifier is immutable and patch keys for it are ignored. The record is
// always stamped confirmed, even for an empty patch.
//
// Alumni edits are gated by the user-editing flag; an authenticated admin may
// edit regardless.
func (s *Service) ApplyEdit(ctx context.Context, seq int, patch map[string]string) error {
	if auth.AdminActor(ctx) == "" {
		enabled, err := s.settings.UserEditingEnabled()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "could not read settings")
		}
		if !enabled {
			return dErrors.New(dErrors.CodeForbidden, "editing is currently disabled")
		}
	}

	rec, err := s.store.Get(ctx, seq)
	if err != nil {
		return wrapStoreErr(err)
	}

	// Allow-listed patch: walk the catalog's known fields and look each up in
	// the submitted form, never the other way around.
	sanitized := make(map[string]string, len(patch))
	for label, value := range patch {
		sanitized[catalog.Sanitize(label)] = value
	}
	for _, f := range catalog.All() {
		if catalog.IsReserved(f.ID) {
			continue
		}
		if value, ok := sanitized[catalog.Sanitize(f.Label)]; ok {
			rec.SetField(f.ID, value)
		}
	}

	rec.Status = models.StatusConfirmed
	rec.LastUpdated = s.stamp()
	if err := s.store.Update(ctx, rec); err != nil {
		return wrapStoreErr(err)
	}
	s.metrics.IncrementEdits()
	return nil
}

// ResetStatus returns a record to unconfirmed with the placeholder
// last-updated string. Repeated calls are idempotent.
func (s *Service) ResetStatus(ctx context.Context, seq int) error {
	if err := s.store.ResetStatus(ctx, seq); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Directory returns records matching a free-text query over first name, last
// name, and nickname. Admins may browse regardless of the directory flag.
func (s *Service) Directory(ctx context.Context, query string) ([]*models.Record, error) {
	if auth.AdminActor(ctx) == "" {
		enabled, err := s.settings.DirectoryViewEnabled()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not read settings")
		}
		if !enabled {
			return nil, dErrors.New(dErrors.CodeForbidden, "directory browsing is disabled")
		}
	}
	recs, err := s.store.SearchFreeText(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return recs, nil
}

// ListForAdmin returns every record plus confirmation statistics for the
// dashboard.
func (s *Service) ListForAdmin(ctx context.Context) ([]*models.Record, models.Stats, error) {
	recs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, models.Stats{}, wrapStoreErr(err)
	}
	return recs, computeStats(recs), nil
}

func computeStats(recs []*models.Record) models.Stats {
	stats := models.Stats{Total: len(recs)}
	for _, r := range recs {
		if r.Status == models.StatusConfirmed {
			stats.Confirmed++
		}
	}
	stats.Unconfirmed = stats.Total - stats.Confirmed
	if stats.Total > 0 {
		pct := float64(stats.Confirmed) / float64(stats.Total) * 100
		stats.Percentage = math.Round(pct*100) / 100
	}
	return stats
}

func wrapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store operation failed")
}
