package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/store"
)

const DefaultSessionIdle = 30 * time.Minute

// SessionService keeps at most one session open and auto-rolls to a fresh one
// when the open session has been idle too long.
type SessionService struct {
	sessions domain.SessionStore
	logger   *zap.Logger

	IdleAfter time.Duration

	mu           sync.Mutex
	lastActivity time.Time
}

func NewSessionService(sessions domain.SessionStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		logger:    logger,
		IdleAfter: DefaultSessionIdle,
	}
}

// StartSession opens a session, or returns the already-open one. Idempotent.
func (s *SessionService) StartSession(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *SessionService) startLocked(ctx context.Context) (*domain.Session, error) {
	open, err := s.sessions.GetOpen(ctx)
	if err == nil {
		return open, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get open session: %w", err)
	}

	session := &domain.Session{}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.lastActivity = time.Now()
	s.logger.Info("session started", zap.String("session_id", session.ID.String()))
	return session, nil
}

// EndSession closes the open session. Ending when nothing is open is an error
// the caller can map to not-found.
func (s *SessionService) EndSession(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.sessions.GetOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}

	endedAt := time.Now()
	if err := s.sessions.End(ctx, open.ID, endedAt); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	open.EndedAt = &endedAt
	s.logger.Info("session ended", zap.String("session_id", open.ID.String()))
	return open, nil
}

// CurrentForSubmit returns the session a new unit belongs to: the open
// session if it is fresh, otherwise a new one after closing the idle session.
func (s *SessionService) CurrentForSubmit(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.sessions.GetOpen(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return s.startLocked(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}

	// After a restart the in-memory anchor is gone; fall back to when the
	// open session started, so a stale session is not reused indefinitely.
	anchor := s.lastActivity
	if anchor.IsZero() {
		anchor = open.StartedAt
	}
	if time.Since(anchor) > s.IdleAfter {
		endedAt := time.Now()
		if err := s.sessions.End(ctx, open.ID, endedAt); err != nil {
			return nil, fmt.Errorf("end idle session: %w", err)
		}
		s.logger.Info("idle session rolled over",
			zap.String("session_id", open.ID.String()),
			zap.Duration("idle", time.Since(anchor)))
		return s.startLocked(ctx)
	}

	s.lastActivity = time.Now()
	return open, nil
}

// GetSession loads one session by id.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, id)
}
