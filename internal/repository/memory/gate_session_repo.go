package memory

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type GateSessionRepository struct {
	store *Store
}

func (r *GateSessionRepository) Create(ctx context.Context, s *domain.GateSession) (*domain.GateSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.sessions {
		if existing.Status == domain.GateSessionEntering {
			return nil, fmt.Errorf("%w: another gate session is entering", repository.ErrConflict)
		}
	}
	now := time.Now().UTC()
	s.ID = r.store.nextSessionID
	r.store.nextSessionID++
	s.Status = domain.GateSessionEntering
	s.BuzzerActive = false
	s.CreatedAt = now
	s.UpdatedAt = now
	r.store.sessions[s.ID] = cloneSession(s)
	return s, nil
}

func (r *GateSessionRepository) FindActive(ctx context.Context) (*domain.GateSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var active *domain.GateSession
	for _, s := range r.store.sessions {
		if s.Status != domain.GateSessionEntering {
			continue
		}
		if active == nil || s.CreatedAt.Before(active.CreatedAt) {
			active = s
		}
	}
	if active == nil {
		return nil, repository.ErrNoActiveSession
	}
	return cloneSession(active), nil
}

func (r *GateSessionRepository) Complete(ctx context.Context, id int) error {
	return r.finish(id, domain.GateSessionParked)
}

func (r *GateSessionRepository) Abort(ctx context.Context, id int) error {
	return r.finish(id, domain.GateSessionAborted)
}

func (r *GateSessionRepository) finish(id int, status domain.GateSessionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Status != domain.GateSessionEntering {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	s.Status = status
	s.BuzzerActive = false
	s.CompletedAt = null.TimeFrom(now)
	s.UpdatedAt = now
	return nil
}

func (r *GateSessionRepository) SetBuzzer(ctx context.Context, id int, active bool) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if s.BuzzerActive == active {
		return false, nil
	}
	s.BuzzerActive = active
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *GateSessionRepository) FindEnteringOlderThan(ctx context.Context, cutoff time.Time) ([]domain.GateSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sessions []domain.GateSession
	for _, s := range r.store.sessions {
		if s.Status == domain.GateSessionEntering && s.CreatedAt.Before(cutoff) {
			sessions = append(sessions, *cloneSession(s))
		}
	}
	return sessions, nil
}
