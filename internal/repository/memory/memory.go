// Package memory provides in-memory repositories for development and tests.
//
// All operations are thread-safe. Data is lost on process restart.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/repository"
)

var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.ApplicationRepository = (*ApplicationStore)(nil)
	_ repository.CreditCheckRepository = (*CreditCheckStore)(nil)
)

// Store holds users and exposes the application and credit check stores.
type Store struct {
	mu           sync.RWMutex
	users        map[int32]domain.User
	Applications *ApplicationStore
	CreditChecks *CreditCheckStore
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int32]domain.User),
		Applications: &ApplicationStore{apps: make(map[int32]domain.Application)},
		CreditChecks: &CreditCheckStore{checks: make(map[string]domain.CreditCheck), refs: make(map[string]string)},
	}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.CreditScore != nil {
		score := *u.CreditScore
		u.CreditScore = &score
	}
	return &u, nil
}

func (s *Store) UpdateCreditScore(ctx context.Context, id int32, score int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.CreditScore = &score
	s.users[id] = u
	return nil
}

type ApplicationStore struct {
	mu   sync.RWMutex
	apps map[int32]domain.Application
}

func (a *ApplicationStore) Put(app domain.Application) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apps[app.ID] = app
}

func (a *ApplicationStore) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	app, ok := a.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

func (a *ApplicationStore) SetCreditCheckIncluded(ctx context.Context, id int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	app, ok := a.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.CreditCheck = true
	a.apps[id] = app
	return nil
}

type CreditCheckStore struct {
	mu     sync.RWMutex
	checks map[string]domain.CreditCheck
	refs   map[string]string // reference id -> check id
}

// copyCheck deep copies through JSON so callers never share report slices.
func copyCheck(c domain.CreditCheck) *domain.CreditCheck {
	out := c
	if c.Report != nil {
		raw, _ := json.Marshal(c.Report)
		out.Report = &domain.CreditReport{}
		_ = json.Unmarshal(raw, out.Report)
	}
	if c.Score != nil {
		score := *c.Score
		out.Score = &score
	}
	if c.CompletedDate != nil {
		t := *c.CompletedDate
		out.CompletedDate = &t
	}
	if c.LinkedApplicationID != nil {
		id := *c.LinkedApplicationID
		out.LinkedApplicationID = &id
	}
	return &out
}

func (s *CreditCheckStore) Create(ctx context.Context, c *domain.CreditCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[c.ReferenceID]; ok {
		return repository.ErrDuplicateReference
	}
	c.UpdatedOn = c.RequestDate
	s.checks[c.ID] = *copyCheck(*c)
	s.refs[c.ReferenceID] = c.ID
	return nil
}

func (s *CreditCheckStore) GetByID(ctx context.Context, id string) (*domain.CreditCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCheck(c), nil
}

func (s *CreditCheckStore) GetByReferenceID(ctx context.Context, referenceID string) (*domain.CreditCheck, error) {
	s.mu.RLock()
	id, ok := s.refs[referenceID]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// filter returns matching checks newest request first, ties broken by descending id
// to match the postgres ordering.
func (s *CreditCheckStore) filter(match func(domain.CreditCheck) bool) []domain.CreditCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CreditCheck
	for _, c := range s.checks {
		if match(c) {
			out = append(out, *copyCheck(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RequestDate.Equal(out[j].RequestDate) {
			return out[i].RequestDate.After(out[j].RequestDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *CreditCheckStore) ListBySubject(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error) {
	return s.filter(func(c domain.CreditCheck) bool { return c.SubjectID == subjectID }), nil
}

func (s *CreditCheckStore) GetByApplicationID(ctx context.Context, applicationID int32) (*domain.CreditCheck, error) {
	checks := s.filter(func(c domain.CreditCheck) bool {
		return c.LinkedApplicationID != nil && *c.LinkedApplicationID == applicationID
	})
	if len(checks) == 0 {
		return nil, repository.ErrNotFound
	}
	return &checks[0], nil
}

func (s *CreditCheckStore) GetMostRecent(ctx context.Context, subjectID int32) (*domain.CreditCheck, error) {
	checks, _ := s.ListBySubject(ctx, subjectID)
	if len(checks) == 0 {
		return nil, repository.ErrNotFound
	}
	return &checks[0], nil
}

func (s *CreditCheckStore) HasCompletedSince(ctx context.Context, subjectID int32, since time.Time) (bool, error) {
	checks := s.filter(func(c domain.CreditCheck) bool {
		return c.SubjectID == subjectID && c.Status == domain.CreditCheckStatusCompleted &&
			c.CompletedDate != nil && !c.CompletedDate.Before(since)
	})
	return len(checks) > 0, nil
}

func (s *CreditCheckStore) HasPending(ctx context.Context, subjectID int32) (bool, error) {
	checks := s.filter(func(c domain.CreditCheck) bool {
		return c.SubjectID == subjectID && c.Status == domain.CreditCheckStatusPending
	})
	return len(checks) > 0, nil
}

func (s *CreditCheckStore) MarkCompleted(ctx context.Context, id string, score int32, report *domain.CreditReport, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[id]
	if !ok || c.Status != domain.CreditCheckStatusPending {
		return false, nil
	}
	c.Status = domain.CreditCheckStatusCompleted
	c.Score = &score
	c.Report = report
	c.CompletedDate = &completedAt
	c.UpdatedOn = completedAt
	s.checks[id] = *copyCheck(c)
	return true, nil
}

func (s *CreditCheckStore) MarkFailed(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[id]
	if !ok || c.Status != domain.CreditCheckStatusPending {
		return false, nil
	}
	c.Status = domain.CreditCheckStatusFailed
	c.FailureReason = reason
	c.UpdatedOn = at
	s.checks[id] = c
	return true, nil
}

func (s *CreditCheckStore) ListPendingBefore(ctx context.Context, before time.Time) ([]domain.CreditCheck, error) {
	checks := s.filter(func(c domain.CreditCheck) bool {
		return c.Status == domain.CreditCheckStatusPending && c.RequestDate.Before(before)
	})
	sort.SliceStable(checks, func(i, j int) bool {
		if !checks[i].RequestDate.Equal(checks[j].RequestDate) {
			return checks[i].RequestDate.Before(checks[j].RequestDate)
		}
		return checks[i].ID < checks[j].ID
	})
	return checks, nil
}

// Seed inserts a check as-is, for fixtures that need historical rows.
func (s *CreditCheckStore) Seed(c domain.CreditCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[c.ID] = *copyCheck(c)
	s.refs[c.ReferenceID] = c.ID
}
