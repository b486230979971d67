package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type ExtractorStateStore struct {
	db *pgxpool.Pool
}

func NewExtractorStateStore(db *pgxpool.Pool) *ExtractorStateStore {
	return &ExtractorStateStore{db: db}
}

func (s *ExtractorStateStore) Upsert(ctx context.Context, st *domain.ExtractorState) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO extractor_states (name, active)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET active = EXCLUDED.active, updated_at = NOW()
		 RETURNING run_count, success_count, updated_at`,
		st.Name, st.Active,
	).Scan(&st.RunCount, &st.SuccessCount, &st.UpdatedAt)
}

func (s *ExtractorStateStore) Get(ctx context.Context, name string) (*domain.ExtractorState, error) {
	st := &domain.ExtractorState{}
	err := s.db.QueryRow(ctx,
		`SELECT name, active, run_count, success_count, updated_at
		 FROM extractor_states WHERE name = $1`,
		name,
	).Scan(&st.Name, &st.Active, &st.RunCount, &st.SuccessCount, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *ExtractorStateStore) List(ctx context.Context) ([]domain.ExtractorState, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, active, run_count, success_count, updated_at
		 FROM extractor_states ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.ExtractorState
	for rows.Next() {
		var st domain.ExtractorState
		if err := rows.Scan(&st.Name, &st.Active, &st.RunCount, &st.SuccessCount, &st.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func (s *ExtractorStateStore) RecordRun(ctx context.Context, name string, success bool) error {
	successInc := 0
	if success {
		successInc = 1
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE extractor_states
		 SET run_count = run_count + 1, success_count = success_count + $2, updated_at = NOW()
		 WHERE name = $1`,
		name, successInc,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
