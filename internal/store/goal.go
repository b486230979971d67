package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type GoalStore struct {
	db *pgxpool.Pool
}

func NewGoalStore(db *pgxpool.Pool) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) Create(ctx context.Context, g *domain.Goal) error {
	if g.Status == "" {
		g.Status = domain.GoalActive
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO goals (statement, status, progress_value, goal_type, timeframe, priority)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		g.Statement, g.Status, g.ProgressValue, g.GoalType, g.Timeframe, g.Priority,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

func (s *GoalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	g := &domain.Goal{}
	err := s.db.QueryRow(ctx,
		`SELECT id, statement, status, progress_value, goal_type, timeframe, priority, created_at, updated_at
		 FROM goals WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Statement, &g.Status, &g.ProgressValue, &g.GoalType, &g.Timeframe, &g.Priority, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *GoalStore) List(ctx context.Context, page domain.Page) ([]domain.Goal, error) {
	page = page.Clamp(50, 200)
	return s.list(ctx,
		`SELECT id, statement, status, progress_value, goal_type, timeframe, priority, created_at, updated_at
		 FROM goals ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
}

func (s *GoalStore) ListByStatus(ctx context.Context, status domain.GoalStatus) ([]domain.Goal, error) {
	return s.list(ctx,
		`SELECT id, statement, status, progress_value, goal_type, timeframe, priority, created_at, updated_at
		 FROM goals WHERE status = $1 ORDER BY updated_at DESC`,
		status,
	)
}

func (s *GoalStore) list(ctx context.Context, query string, args ...any) ([]domain.Goal, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		var g domain.Goal
		if err := rows.Scan(&g.ID, &g.Statement, &g.Status, &g.ProgressValue, &g.GoalType, &g.Timeframe, &g.Priority, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *GoalStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.GoalStatus, at time.Time) error {
	return s.exec(ctx, `UPDATE goals SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
}

func (s *GoalStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, at time.Time) error {
	return s.exec(ctx, `UPDATE goals SET progress_value = $2, updated_at = $3 WHERE id = $1`, id, progress, at)
}

func (s *GoalStore) AddMilestone(ctx context.Context, m *domain.Milestone) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO goal_milestones (goal_id, description, reached)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		m.GoalID, m.Description, m.Reached,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *GoalStore) ListMilestones(ctx context.Context, goalID uuid.UUID) ([]domain.Milestone, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, goal_id, description, reached, created_at
		 FROM goal_milestones WHERE goal_id = $1 ORDER BY created_at`,
		goalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(&m.ID, &m.GoalID, &m.Description, &m.Reached, &m.CreatedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (s *GoalStore) AddBlocker(ctx context.Context, b *domain.Blocker) error {
	if b.Status == "" {
		b.Status = domain.BlockerOpen
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO goal_blockers (goal_id, description, severity, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		b.GoalID, b.Description, b.Severity, b.Status,
	).Scan(&b.ID, &b.CreatedAt)
}

func (s *GoalStore) ListBlockers(ctx context.Context, goalID uuid.UUID) ([]domain.Blocker, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, goal_id, description, severity, status, created_at, resolved_at
		 FROM goal_blockers WHERE goal_id = $1 ORDER BY created_at`,
		goalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blockers []domain.Blocker
	for rows.Next() {
		var b domain.Blocker
		if err := rows.Scan(&b.ID, &b.GoalID, &b.Description, &b.Severity, &b.Status, &b.CreatedAt, &b.ResolvedAt); err != nil {
			return nil, err
		}
		blockers = append(blockers, b)
	}
	return blockers, rows.Err()
}

func (s *GoalStore) ResolveBlocker(ctx context.Context, blockerID uuid.UUID, at time.Time) error {
	return s.exec(ctx,
		`UPDATE goal_blockers SET status = 'resolved', resolved_at = $2 WHERE id = $1 AND status = 'open'`,
		blockerID, at,
	)
}

func (s *GoalStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
