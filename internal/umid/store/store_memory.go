package store

import (
	"context"
	"sort"
	"sync"

	"umid/internal/umid/models"
	id "umid/pkg/domain"
	"umid/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory UMID store for development and tests.
// Records are deep-copied on the way in and out.
type InMemory struct {
	mu       sync.RWMutex
	umids    map[id.UMIDID]*models.UMID
	active   map[id.PatientID]id.UMIDID
	versions map[id.UMIDID][]models.LinkedMedicalData
}

func NewInMemory() *InMemory {
	return &InMemory{
		umids:    make(map[id.UMIDID]*models.UMID),
		active:   make(map[id.PatientID]id.UMIDID),
		versions: make(map[id.UMIDID][]models.LinkedMedicalData),
	}
}

// CreateIfNoActive stores u unless its patient already holds an active UMID.
// The check and the write happen under one lock.
func (s *InMemory) CreateIfNoActive(_ context.Context, u *models.UMID) error {
	if u == nil {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.umids[u.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if u.IsActive {
		if _, ok := s.active[u.PatientID]; ok {
			return sentinel.ErrAlreadyUsed
		}
		s.active[u.PatientID] = u.ID
	}
	stored := u.Clone()
	stored.AccessHistory = nil
	s.umids[u.ID] = stored
	s.versions[u.ID] = []models.LinkedMedicalData{cloneLinked(u.LinkedData)}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, umidID id.UMIDID) (*models.UMID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.umids[umidID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return u.Clone(), nil
}

// Execute loads the UMID, runs validate on a copy and, when it passes,
// applies mutate and persists the result atomically.
func (s *InMemory) Execute(_ context.Context, umidID id.UMIDID, validate func(*models.UMID) error, mutate func(*models.UMID)) (*models.UMID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.umids[umidID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	if working.LinkedData.Version != current.LinkedData.Version {
		s.versions[umidID] = append(s.versions[umidID], cloneLinked(working.LinkedData))
	}
	if current.IsActive && !working.IsActive {
		delete(s.active, working.PatientID)
	}
	s.umids[umidID] = working.Clone()
	return working, nil
}

// ListByPatient returns every UMID of a patient, oldest first.
func (s *InMemory) ListByPatient(_ context.Context, patientID id.PatientID) ([]*models.UMID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UMID
	for _, u := range s.umids {
		if u.PatientID == patientID {
			out = append(out, u.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

// Query returns UMIDs matching f, oldest first, paged by f.Limit/f.Offset.
func (s *InMemory) Query(_ context.Context, f models.Filter) ([]*models.UMID, error) {
	f = f.Normalized()
	s.mu.RLock()
	var matched []*models.UMID
	for _, u := range s.umids {
		if f.Matches(u) {
			matched = append(matched, u.Clone())
		}
	}
	s.mu.RUnlock()

	sortByCreated(matched)
	if f.Offset >= len(matched) {
		return []*models.UMID{}, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], nil
}

// ListDataVersions returns all linked-data versions, oldest first.
func (s *InMemory) ListDataVersions(_ context.Context, umidID id.UMIDID) ([]models.LinkedMedicalData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[umidID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]models.LinkedMedicalData, len(versions))
	for i, v := range versions {
		out[i] = cloneLinked(v)
	}
	return out, nil
}

func cloneLinked(l models.LinkedMedicalData) models.LinkedMedicalData {
	l.Data = l.Data.Clone()
	return l
}

func sortByCreated(us []*models.UMID) {
	sort.Slice(us, func(i, j int) bool {
		if us[i].CreatedAt.Equal(us[j].CreatedAt) {
			return us[i].ID.String() < us[j].ID.String()
		}
		return us[i].CreatedAt.Before(us[j].CreatedAt)
	})
}
