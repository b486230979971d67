package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, t *domain.Task) error {
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 3
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO tasks (unit_id, step, status, priority, attempts, max_attempts, checkpoint)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		t.UnitID, t.Step, t.Status, t.Priority, t.Attempts, t.MaxAttempts, t.Checkpoint,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *TaskStore) Update(ctx context.Context, t *domain.Task) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tasks
		 SET status = $2, attempts = $3, last_error = $4, checkpoint = $5, completed_at = $6, updated_at = NOW()
		 WHERE id = $1`,
		t.ID, t.Status, t.Attempts, t.LastError, t.Checkpoint, t.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) ([]domain.Task, error) {
	page = page.Clamp(50, 200)
	rows, err := s.db.Query(ctx,
		`SELECT id, unit_id, step, status, priority, attempts, max_attempts, last_error, checkpoint, created_at, updated_at, completed_at
		 FROM tasks WHERE status = $1
		 ORDER BY priority, created_at
		 LIMIT $2 OFFSET $3`,
		status, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UnitID, &t.Step, &t.Status, &t.Priority, &t.Attempts, &t.MaxAttempts,
			&t.LastError, &t.Checkpoint, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
