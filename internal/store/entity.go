package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type EntityStore struct {
	db *pgxpool.Pool
}

func NewEntityStore(db *pgxpool.Pool) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) CreateMention(ctx context.Context, m *domain.EntityMention) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO entity_mentions (unit_id, text, mention_type, suggested_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.UnitID, m.Text, m.MentionType, m.SuggestedType,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *EntityStore) ListMentionsByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.EntityMention, error) {
	return s.listMentions(ctx,
		`SELECT id, unit_id, text, mention_type, suggested_type, resolved_entity_id, created_at
		 FROM entity_mentions WHERE unit_id = $1 ORDER BY created_at`,
		unitID,
	)
}

func (s *EntityStore) ListUnresolvedMentions(ctx context.Context, page domain.Page) ([]domain.EntityMention, error) {
	page = page.Clamp(50, 200)
	return s.listMentions(ctx,
		`SELECT id, unit_id, text, mention_type, suggested_type, resolved_entity_id, created_at
		 FROM entity_mentions
		 WHERE resolved_entity_id IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
}

func (s *EntityStore) listMentions(ctx context.Context, query string, args ...any) ([]domain.EntityMention, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []domain.EntityMention
	for rows.Next() {
		var m domain.EntityMention
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Text, &m.MentionType, &m.SuggestedType, &m.ResolvedEntityID, &m.CreatedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

func (s *EntityStore) ResolveMention(ctx context.Context, mentionID, entityID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entity_mentions SET resolved_entity_id = $2 WHERE id = $1`,
		mentionID, entityID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntityStore) CreateEntity(ctx context.Context, e *domain.Entity) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO entities (canonical_name, entity_type, mention_count)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (canonical_name, entity_type) DO UPDATE
		 SET mention_count = entities.mention_count + 1, updated_at = NOW()
		 RETURNING id, mention_count, created_at, updated_at`,
		e.CanonicalName, e.EntityType, e.MentionCount,
	).Scan(&e.ID, &e.MentionCount, &e.CreatedAt, &e.UpdatedAt)
}

func (s *EntityStore) GetEntityByID(ctx context.Context, id uuid.UUID) (*domain.Entity, error) {
	e := &domain.Entity{}
	err := s.db.QueryRow(ctx,
		`SELECT id, canonical_name, entity_type, mention_count, created_at, updated_at
		 FROM entities WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.MentionCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) GetEntityByName(ctx context.Context, canonicalName, entityType string) (*domain.Entity, error) {
	e := &domain.Entity{}
	err := s.db.QueryRow(ctx,
		`SELECT id, canonical_name, entity_type, mention_count, created_at, updated_at
		 FROM entities WHERE LOWER(canonical_name) = LOWER($1) AND entity_type = $2`,
		canonicalName, entityType,
	).Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.MentionCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) ListEntities(ctx context.Context, page domain.Page) ([]domain.Entity, error) {
	page = page.Clamp(50, 200)
	return s.listEntities(ctx,
		`SELECT id, canonical_name, entity_type, mention_count, created_at, updated_at
		 FROM entities ORDER BY mention_count DESC, canonical_name
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
}

func (s *EntityStore) ListEntitiesByRecentMention(ctx context.Context, limit int) ([]domain.Entity, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listEntities(ctx,
		`SELECT id, canonical_name, entity_type, mention_count, created_at, updated_at
		 FROM entities ORDER BY updated_at DESC
		 LIMIT $1`,
		limit,
	)
}

func (s *EntityStore) listEntities(ctx context.Context, query string, args ...any) ([]domain.Entity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.MentionCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *EntityStore) IncrementMentionCount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities SET mention_count = mention_count + 1, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntityStore) RenameEntity(ctx context.Context, id uuid.UUID, canonicalName string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities SET canonical_name = $2, updated_at = NOW() WHERE id = $1`,
		id, canonicalName,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
