package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noemahq/noema/internal/domain"
)

type PropositionStore struct {
	db *pgxpool.Pool
}

func NewPropositionStore(db *pgxpool.Pool) *PropositionStore {
	return &PropositionStore{db: db}
}

// Create persists a proposition together with its 1:1 stance.
func (s *PropositionStore) Create(ctx context.Context, p *domain.Proposition, st *domain.Stance) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO propositions (unit_id, content, type, subject)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.UnitID, p.Content, p.Type, p.Subject,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return err
	}

	st.PropositionID = p.ID
	_, err = tx.Exec(ctx,
		`INSERT INTO stances (proposition_id, certainty, evidence,
		     volitional_type, volitional_strength, volitional_valence,
		     deontic_type, deontic_strength,
		     affective_valence, affective_arousal, emotions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		st.PropositionID, st.Epistemic.Certainty, st.Epistemic.Evidence,
		st.Volitional.Type, st.Volitional.Strength, st.Volitional.Valence,
		st.Deontic.Type, st.Deontic.Strength,
		st.Affective.Valence, st.Affective.Arousal, st.Affective.Emotions,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PropositionStore) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.Proposition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, unit_id, content, type, subject, created_at
		 FROM propositions WHERE unit_id = $1 ORDER BY created_at`,
		unitID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []domain.Proposition
	for rows.Next() {
		var p domain.Proposition
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Content, &p.Type, &p.Subject, &p.CreatedAt); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func (s *PropositionStore) GetStance(ctx context.Context, propositionID uuid.UUID) (*domain.Stance, error) {
	st := &domain.Stance{}
	err := s.db.QueryRow(ctx,
		`SELECT proposition_id, certainty, evidence,
		        volitional_type, volitional_strength, volitional_valence,
		        deontic_type, deontic_strength,
		        affective_valence, affective_arousal, emotions
		 FROM stances WHERE proposition_id = $1`,
		propositionID,
	).Scan(&st.PropositionID, &st.Epistemic.Certainty, &st.Epistemic.Evidence,
		&st.Volitional.Type, &st.Volitional.Strength, &st.Volitional.Valence,
		&st.Deontic.Type, &st.Deontic.Strength,
		&st.Affective.Valence, &st.Affective.Arousal, &st.Affective.Emotions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *PropositionStore) CreateRelation(ctx context.Context, r *domain.Relation) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO relations (proposition_a_id, proposition_b_id, category, subtype, strength)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		r.PropositionAID, r.PropositionBID, r.Category, r.Subtype, r.Strength,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *PropositionStore) ListRelationsByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.Relation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.proposition_a_id, r.proposition_b_id, r.category, r.subtype, r.strength, r.created_at
		 FROM relations r
		 JOIN propositions p ON p.id = r.proposition_a_id
		 WHERE p.unit_id = $1`,
		unitID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []domain.Relation
	for rows.Next() {
		var r domain.Relation
		if err := rows.Scan(&r.ID, &r.PropositionAID, &r.PropositionBID, &r.Category, &r.Subtype, &r.Strength, &r.CreatedAt); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
