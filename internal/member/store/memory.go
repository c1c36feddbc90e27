package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pych2536/rpca70/internal/member/models"
)

// InMemory stores records in memory for tests and the demo environment.
type InMemory struct {
	mu      sync.RWMutex
	records map[int]*models.Record
}

// NewInMemory creates an in-memory record store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[int]*models.Record)}
}

func (s *InMemory) Get(_ context.Context, seq int) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[seq]; ok {
		return rec.Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *InMemory) FindByName(_ context.Context, first, last string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		f, _ := rec.Field("first_name")
		l, _ := rec.Field("last_name")
		if strings.EqualFold(strings.TrimSpace(f), first) && strings.EqualFold(strings.TrimSpace(l), last) {
			return rec.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) SearchFreeText(_ context.Context, query string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(query)
	var out []*models.Record
	for _, rec := range s.records {
		for _, id := range []string{"first_name", "last_name", "nickname"} {
			v, _ := rec.Field(id)
			if query != "" && strings.Contains(strings.ToLower(v), query) {
				out = append(out, rec.Clone())
				break
			}
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemory) ReplaceAll(_ context.Context, records []*models.Record) error {
	next := make(map[int]*models.Record, len(records))
	for _, rec := range records {
		next[rec.SequenceID] = rec.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
	return nil
}

func (s *InMemory) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.SequenceID]; !ok {
		return ErrNotFound
	}
	s.records[rec.SequenceID] = rec.Clone()
	return nil
}

func (s *InMemory) ResetStatus(_ context.Context, seq int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[seq]
	if !ok {
		return ErrNotFound
	}
	rec.Status = models.StatusUnconfirmed
	rec.LastUpdated = models.PlaceholderUpdatedAt
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// sortRecords orders unconfirmed before confirmed, then by ascending sequence.
func sortRecords(recs []*models.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Status != recs[j].Status {
			return recs[i].Status == models.StatusUnconfirmed
		}
		return recs[i].SequenceID < recs[j].SequenceID
	})
}
