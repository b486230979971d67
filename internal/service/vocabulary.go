package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/store"
)

// VocabularyService owns the correction table applied during preprocess and
// the phonetic vocabulary used to canonicalize entity spellings.
type VocabularyService struct {
	corrections domain.CorrectionStore
	vocabulary  domain.VocabularyStore
	entities    domain.EntityStore
	logger      *zap.Logger
}

func NewVocabularyService(
	corrections domain.CorrectionStore,
	vocabulary domain.VocabularyStore,
	entities domain.EntityStore,
	logger *zap.Logger,
) *VocabularyService {
	return &VocabularyService{
		corrections: corrections,
		vocabulary:  vocabulary,
		entities:    entities,
		logger:      logger,
	}
}

// ApplyCorrections rewrites known wrong spellings in the text, longest wrong
// text first, whole-word and case-insensitive. Each applied correction bumps
// its usage count.
func (s *VocabularyService) ApplyCorrections(ctx context.Context, text string) (string, error) {
	corrections, err := s.corrections.List(ctx, domain.Page{Limit: 500})
	if err != nil {
		return text, fmt.Errorf("list corrections: %w", err)
	}

	// The store orders by wrong-text length descending, but defend the
	// longest-first invariant here too.
	sort.SliceStable(corrections, func(i, j int) bool {
		return len(corrections[i].WrongText) > len(corrections[j].WrongText)
	})

	for _, c := range corrections {
		re, err := wholeWordPattern(c.WrongText)
		if err != nil {
			continue
		}
		if !re.MatchString(text) {
			continue
		}
		text = re.ReplaceAllString(text, c.CorrectText)
		if err := s.corrections.IncrementUsage(ctx, c.ID); err != nil {
			s.logger.Warn("failed to bump correction usage",
				zap.String("correction_id", c.ID.String()), zap.Error(err))
		}
	}
	return text, nil
}

func wholeWordPattern(word string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// LearnCorrection records a wrong->correct pair, typically from an explicit
// "I meant X not Y" utterance. Re-learning an existing pair reinforces it.
func (s *VocabularyService) LearnCorrection(ctx context.Context, wrongText, correctText string) (*domain.Correction, error) {
	wrongText = strings.TrimSpace(wrongText)
	correctText = strings.TrimSpace(correctText)
	if wrongText == "" || correctText == "" {
		return nil, errors.New("correction needs both wrong and correct text")
	}
	if strings.EqualFold(wrongText, correctText) {
		return nil, errors.New("correction is a no-op")
	}

	existing, err := s.corrections.GetByWrongText(ctx, wrongText)
	if err == nil {
		if err := s.corrections.IncrementUsage(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("reinforce correction: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup correction: %w", err)
	}

	c := &domain.Correction{WrongText: wrongText, CorrectText: correctText}
	if err := s.corrections.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create correction: %w", err)
	}
	s.logger.Info("correction learned",
		zap.String("wrong", wrongText),
		zap.String("correct", correctText))
	return c, nil
}

// RemoveCorrection deletes one correction.
func (s *VocabularyService) RemoveCorrection(ctx context.Context, id uuid.UUID) error {
	return s.corrections.Delete(ctx, id)
}

// ReconcileEntities renames entities whose canonical name is a known wrong
// spelling, so mentions already resolved to them follow the correction. When
// an entity with the corrected name already exists the misspelled one is left
// alone; future mentions land on the corrected entity via preprocess.
func (s *VocabularyService) ReconcileEntities(ctx context.Context) (int, error) {
	corrections, err := s.corrections.List(ctx, domain.Page{Limit: 500})
	if err != nil {
		return 0, fmt.Errorf("list corrections: %w", err)
	}
	if len(corrections) == 0 {
		return 0, nil
	}

	entities, err := s.entities.ListEntities(ctx, domain.Page{Limit: 500})
	if err != nil {
		return 0, fmt.Errorf("list entities: %w", err)
	}

	renamed := 0
	for i := range entities {
		e := &entities[i]
		for _, c := range corrections {
			if !strings.EqualFold(e.CanonicalName, c.WrongText) {
				continue
			}
			if _, err := s.entities.GetEntityByName(ctx, c.CorrectText, e.EntityType); err == nil {
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return renamed, fmt.Errorf("lookup entity: %w", err)
			}
			if err := s.entities.RenameEntity(ctx, e.ID, c.CorrectText); err != nil {
				return renamed, fmt.Errorf("rename entity: %w", err)
			}
			s.logger.Info("entity renamed by correction",
				zap.String("entity_id", e.ID.String()),
				zap.String("from", e.CanonicalName),
				zap.String("to", c.CorrectText))
			renamed++
			break
		}
	}
	return renamed, nil
}

// AddEntry creates a vocabulary entry with its Double Metaphone codes, or
// reinforces the existing one for the same spelling and type.
func (s *VocabularyService) AddEntry(ctx context.Context, spelling, entityType string, hints []string) (*domain.VocabularyEntry, error) {
	spelling = strings.TrimSpace(spelling)
	if spelling == "" {
		return nil, errors.New("vocabulary entry needs a spelling")
	}

	existing, err := s.vocabulary.GetBySpelling(ctx, spelling, entityType)
	if err == nil {
		if err := s.vocabulary.IncrementUsage(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("reinforce vocabulary entry: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup vocabulary entry: %w", err)
	}

	primary, secondary := matchr.DoubleMetaphone(spelling)
	entry := &domain.VocabularyEntry{
		CorrectSpelling:   spelling,
		EntityType:        entityType,
		PhoneticPrimary:   primary,
		PhoneticSecondary: secondary,
		VariantCounts:     map[string]int{spelling: 1},
		ContextHints:      hints,
		UsageCount:        1,
	}
	if err := s.vocabulary.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create vocabulary entry: %w", err)
	}
	return entry, nil
}

// RemoveEntry deletes one vocabulary entry.
func (s *VocabularyService) RemoveEntry(ctx context.Context, id uuid.UUID) error {
	return s.vocabulary.Delete(ctx, id)
}

// RecordVariant tallies an observed spelling against the entry whose phonetic
// code it shares, feeding later canonicalization suggestions.
func (s *VocabularyService) RecordVariant(ctx context.Context, entryID uuid.UUID, observed string) error {
	entry, err := s.vocabulary.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get vocabulary entry: %w", err)
	}
	if entry.VariantCounts == nil {
		entry.VariantCounts = map[string]int{}
	}
	entry.VariantCounts[observed]++
	return s.vocabulary.Update(ctx, entry)
}

// SuggestCanonicalization proposes the canonical spelling for an observed
// text when a vocabulary entry shares its phonetic code but not its spelling.
// Confidence combines variant-vote concentration with phonetic closeness.
// Returns nil when nothing matches.
func (s *VocabularyService) SuggestCanonicalization(ctx context.Context, observed string) (*domain.CanonicalizationSuggestion, error) {
	observed = strings.TrimSpace(observed)
	if observed == "" {
		return nil, nil
	}

	primary, secondary := matchr.DoubleMetaphone(observed)
	seen := map[uuid.UUID]bool{}
	var best *domain.CanonicalizationSuggestion

	for _, code := range []string{primary, secondary} {
		if code == "" {
			continue
		}
		entries, err := s.vocabulary.ListByPhonetic(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("list vocabulary by phonetic: %w", err)
		}
		for i := range entries {
			entry := &entries[i]
			if seen[entry.ID] || strings.EqualFold(entry.CorrectSpelling, observed) {
				continue
			}
			seen[entry.ID] = true

			confidence := suggestionConfidence(entry, observed, code == primary && code == entry.PhoneticPrimary)
			if best == nil || confidence > best.Confidence {
				best = &domain.CanonicalizationSuggestion{
					EntryID:         entry.ID,
					ObservedText:    observed,
					CorrectSpelling: entry.CorrectSpelling,
					Confidence:      confidence,
				}
			}
		}
	}
	return best, nil
}

// suggestionConfidence scores a candidate: how concentrated the entry's
// variant votes are on the canonical spelling, boosted when primary phonetic
// codes match exactly.
func suggestionConfidence(entry *domain.VocabularyEntry, observed string, primaryMatch bool) float64 {
	total := 0
	canonical := 0
	for variant, n := range entry.VariantCounts {
		total += n
		if strings.EqualFold(variant, entry.CorrectSpelling) {
			canonical += n
		}
	}
	concentration := 0.5
	if total > 0 {
		concentration = float64(canonical) / float64(total)
	}

	phonetic := 0.7
	if primaryMatch {
		phonetic = 1.0
	}
	return clamp01(concentration * phonetic)
}

// ApplySuggestion makes the suggestion permanent: renames the matching entity
// if one exists, folds the observed text in as a variant, and registers a
// correction so preprocess rewrites it from now on.
func (s *VocabularyService) ApplySuggestion(ctx context.Context, sg *domain.CanonicalizationSuggestion) error {
	entry, err := s.vocabulary.GetByID(ctx, sg.EntryID)
	if err != nil {
		return fmt.Errorf("get vocabulary entry: %w", err)
	}

	if entry.VariantCounts == nil {
		entry.VariantCounts = map[string]int{}
	}
	entry.VariantCounts[sg.ObservedText]++
	if err := s.vocabulary.Update(ctx, entry); err != nil {
		return fmt.Errorf("update vocabulary entry: %w", err)
	}

	entity, err := s.entities.GetEntityByName(ctx, sg.ObservedText, entry.EntityType)
	if err == nil {
		if err := s.entities.RenameEntity(ctx, entity.ID, entry.CorrectSpelling); err != nil {
			return fmt.Errorf("rename entity: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup entity: %w", err)
	}

	if _, err := s.LearnCorrection(ctx, sg.ObservedText, entry.CorrectSpelling); err != nil {
		return fmt.Errorf("register correction: %w", err)
	}
	s.logger.Info("canonicalization applied",
		zap.String("observed", sg.ObservedText),
		zap.String("canonical", entry.CorrectSpelling))
	return nil
}

// SyncFromEntities seeds vocabulary entries for entities that have none yet,
// so names learned through resolution become phonetic anchors.
func (s *VocabularyService) SyncFromEntities(ctx context.Context) (int, error) {
	entities, err := s.entities.ListEntities(ctx, domain.Page{Limit: 500})
	if err != nil {
		return 0, fmt.Errorf("list entities: %w", err)
	}

	added := 0
	for _, e := range entities {
		_, err := s.vocabulary.GetBySpelling(ctx, e.CanonicalName, e.EntityType)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return added, fmt.Errorf("lookup vocabulary entry: %w", err)
		}
		if _, err := s.AddEntry(ctx, e.CanonicalName, e.EntityType, nil); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		s.logger.Info("vocabulary synced from entities", zap.Int("entries_added", added))
	}
	return added, nil
}
