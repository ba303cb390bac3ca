// Package gatingtest provides an in-memory gating.Store for tests.
package gatingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/gating"
)

type progressKey struct {
	user uuid.UUID
	slug string
}

type toolKey struct {
	user uuid.UUID
	tool string
}

// MemStore is safe for concurrent use. Calls counts queries per method so
// tests can assert which evaluators ran.
type MemStore struct {
	mu        sync.Mutex
	progress  map[progressKey]string
	readiness map[uuid.UUID][]gating.ReadinessPoint
	users     map[uuid.UUID]time.Time
	toolState map[toolKey][]byte
	Err       error
	Calls     map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		progress:  map[progressKey]string{},
		readiness: map[uuid.UUID][]gating.ReadinessPoint{},
		users:     map[uuid.UUID]time.Time{},
		toolState: map[toolKey][]byte{},
		Calls:     map[string]int{},
	}
}

func (s *MemStore) SetProgress(userID uuid.UUID, slug, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{userID, slug}] = status
}

// Complete marks each slug completed.
func (s *MemStore) Complete(userID uuid.UUID, slugs ...string) {
	for _, slug := range slugs {
		s.SetProgress(userID, slug, gating.StatusCompleted)
	}
}

// AddReadiness stores scores for consecutive days ending at end, most recent first.
func (s *MemStore) AddReadiness(userID uuid.UUID, end time.Time, scores ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for i, score := range scores {
		s.readiness[userID] = append(s.readiness[userID], gating.ReadinessPoint{Date: day.AddDate(0, 0, -i), Score: score})
	}
}

func (s *MemStore) AddUser(userID uuid.UUID, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = createdAt
}

func (s *MemStore) SetToolState(userID uuid.UUID, toolType string, state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolState[toolKey{userID, toolType}] = state
}

func (s *MemStore) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[method]
}

func (s *MemStore) hit(method string) error {
	s.Calls[method]++
	return s.Err
}

func (s *MemStore) FindModuleProgress(_ context.Context, userID uuid.UUID, slug string) (*gating.ModuleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("FindModuleProgress"); err != nil {
		return nil, err
	}
	status, ok := s.progress[progressKey{userID, slug}]
	if !ok {
		return nil, nil
	}
	return &gating.ModuleStatus{Status: status}, nil
}

func (s *MemStore) FindReadinessRecords(_ context.Context, userID uuid.UUID, since time.Time) ([]gating.ReadinessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("FindReadinessRecords"); err != nil {
		return nil, err
	}
	var out []gating.ReadinessPoint
	for _, p := range s.readiness[userID] {
		if !p.Date.Before(since) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *MemStore) CountModuleProgress(_ context.Context, userID uuid.UUID, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("CountModuleProgress"); err != nil {
		return 0, err
	}
	n := 0
	for k, v := range s.progress {
		if k.user == userID && (status == "" || v == status) {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) FindUser(_ context.Context, userID uuid.UUID) (*gating.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("FindUser"); err != nil {
		return nil, err
	}
	createdAt, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &gating.Enrollment{CreatedAt: createdAt}, nil
}

func (s *MemStore) FindToolState(_ context.Context, userID uuid.UUID, toolType string) (*gating.ToolStateBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("FindToolState"); err != nil {
		return nil, err
	}
	raw, ok := s.toolState[toolKey{userID, toolType}]
	if !ok {
		return nil, nil
	}
	return &gating.ToolStateBlob{State: raw}, nil
}
