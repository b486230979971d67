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

type ChainStore struct {
	db *pgxpool.Pool
}

func NewChainStore(db *pgxpool.Pool) *ChainStore {
	return &ChainStore{db: db}
}

func (s *ChainStore) Create(ctx context.Context, c *domain.ThoughtChain) error {
	if c.State == "" {
		c.State = domain.ChainActive
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO thought_chains (topic, state, last_extended, branches_from)
		 VALUES ($1, $2, COALESCE($3, NOW()), $4)
		 RETURNING id, last_extended, created_at`,
		c.Topic, c.State, nullableTime(c.LastExtended), c.BranchesFrom,
	).Scan(&c.ID, &c.LastExtended, &c.CreatedAt)
}

func (s *ChainStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ThoughtChain, error) {
	c := &domain.ThoughtChain{}
	err := s.db.QueryRow(ctx,
		`SELECT id, topic, state, last_extended, branches_from, created_at
		 FROM thought_chains WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Topic, &c.State, &c.LastExtended, &c.BranchesFrom, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ChainStore) ListByState(ctx context.Context, state domain.ChainState) ([]domain.ThoughtChain, error) {
	return s.list(ctx,
		`SELECT id, topic, state, last_extended, branches_from, created_at
		 FROM thought_chains WHERE state = $1 ORDER BY last_extended DESC`,
		state,
	)
}

func (s *ChainStore) List(ctx context.Context, page domain.Page) ([]domain.ThoughtChain, error) {
	page = page.Clamp(50, 200)
	return s.list(ctx,
		`SELECT id, topic, state, last_extended, branches_from, created_at
		 FROM thought_chains ORDER BY last_extended DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
}

func (s *ChainStore) list(ctx context.Context, query string, args ...any) ([]domain.ThoughtChain, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []domain.ThoughtChain
	for rows.Next() {
		var c domain.ThoughtChain
		if err := rows.Scan(&c.ID, &c.Topic, &c.State, &c.LastExtended, &c.BranchesFrom, &c.CreatedAt); err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}
	return chains, rows.Err()
}

func (s *ChainStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.ChainState) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE thought_chains SET state = $2 WHERE id = $1`,
		id, state,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ChainStore) UpdateLastExtended(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE thought_chains SET last_extended = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ChainStore) AddClaim(ctx context.Context, cc *domain.ChainClaim) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO chain_claims (chain_id, claim_id, position)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		cc.ChainID, cc.ClaimID, cc.Position,
	).Scan(&cc.CreatedAt)
}

func (s *ChainStore) MaxPosition(ctx context.Context, chainID uuid.UUID) (int, error) {
	var max int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM chain_claims WHERE chain_id = $1`,
		chainID,
	).Scan(&max)
	return max, err
}

func (s *ChainStore) ListClaims(ctx context.Context, chainID uuid.UUID) ([]domain.ChainClaim, error) {
	rows, err := s.db.Query(ctx,
		`SELECT chain_id, claim_id, position, created_at
		 FROM chain_claims WHERE chain_id = $1 ORDER BY position`,
		chainID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.ChainClaim
	for rows.Next() {
		var cc domain.ChainClaim
		if err := rows.Scan(&cc.ChainID, &cc.ClaimID, &cc.Position, &cc.CreatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, cc)
	}
	return claims, rows.Err()
}
