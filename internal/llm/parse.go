package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noemahq/noema/internal/domain"
)

// parseExtractionResponse decodes a capability response into an
// ExtractionResult, tolerating markdown fences, missing fields and invalid
// enum values. Individually malformed items are skipped rather than failing
// the whole response.
func parseExtractionResponse(raw string) (*domain.ExtractionResult, error) {
	raw = stripCodeFence(raw)

	var decoded struct {
		Propositions []struct {
			Content    string  `json:"content"`
			Type       string  `json:"type"`
			Subject    string  `json:"subject"`
			Confidence float64 `json:"confidence"`
			Stance     struct {
				Epistemic struct {
					Certainty float64 `json:"certainty"`
					Evidence  string  `json:"evidence"`
				} `json:"epistemic"`
				Volitional struct {
					Type     string  `json:"type"`
					Strength float64 `json:"strength"`
					Valence  float64 `json:"valence"`
				} `json:"volitional"`
				Deontic struct {
					Type     string  `json:"type"`
					Strength float64 `json:"strength"`
				} `json:"deontic"`
				Affective struct {
					Valence  float64  `json:"valence"`
					Arousal  float64  `json:"arousal"`
					Emotions []string `json:"emotions"`
				} `json:"affective"`
			} `json:"stance"`
		} `json:"propositions"`
		Mentions []struct {
			Text          string `json:"text"`
			MentionType   string `json:"mention_type"`
			SuggestedType string `json:"suggested_type"`
		} `json:"mentions"`
	}

	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal extraction response: %w", err)
	}

	result := &domain.ExtractionResult{}
	for _, p := range decoded.Propositions {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		propType := domain.PropositionType(p.Type)
		if !domain.ValidPropositionType(p.Type) {
			propType = domain.PropositionObservation
		}
		volType := domain.VolitionalType(p.Stance.Volitional.Type)
		switch volType {
		case domain.VolitionalDesire, domain.VolitionalAversion, domain.VolitionalGoal:
		default:
			volType = domain.VolitionalNone
		}
		result.Propositions = append(result.Propositions, domain.ExtractedProposition{
			Content:    strings.TrimSpace(p.Content),
			Type:       propType,
			Subject:    strings.ToLower(strings.TrimSpace(p.Subject)),
			Confidence: clamp01(p.Confidence),
			Stance: domain.Stance{
				Epistemic: domain.EpistemicStance{
					Certainty: clamp01(p.Stance.Epistemic.Certainty),
					Evidence:  p.Stance.Epistemic.Evidence,
				},
				Volitional: domain.VolitionalStance{
					Type:     volType,
					Strength: clamp01(p.Stance.Volitional.Strength),
					Valence:  clampSigned(p.Stance.Volitional.Valence),
				},
				Deontic: domain.DeonticStance{
					Type:     p.Stance.Deontic.Type,
					Strength: clamp01(p.Stance.Deontic.Strength),
				},
				Affective: domain.AffectiveStance{
					Valence:  clampSigned(p.Stance.Affective.Valence),
					Arousal:  clamp01(p.Stance.Affective.Arousal),
					Emotions: p.Stance.Affective.Emotions,
				},
			},
		})
	}

	for _, m := range decoded.Mentions {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		mentionType := domain.MentionType(m.MentionType)
		switch mentionType {
		case domain.MentionNamed, domain.MentionPronominal, domain.MentionNominal:
		default:
			mentionType = domain.MentionNamed
		}
		result.Mentions = append(result.Mentions, domain.ExtractedMention{
			Text:          strings.TrimSpace(m.Text),
			MentionType:   mentionType,
			SuggestedType: m.SuggestedType,
		})
	}

	return result, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
