package extract

import (
	"context"
	"regexp"
	"strings"
)

// correctionPattern matches utterances like "I meant Sarah not Sara" or
// "actually I meant Sarah, not Sara".
var correctionPattern = regexp.MustCompile(`(?i)\bI\s+meant\s+([\p{L}\p{N}']+)\s*,?\s+not\s+([\p{L}\p{N}']+)`)

// CorrectionExtractor learns wrong->correct replacements from explicit
// self-corrections in the utterance.
type CorrectionExtractor struct{}

func (CorrectionExtractor) Name() string     { return "correction_pattern" }
func (CorrectionExtractor) Kind() Kind       { return KindPattern }
func (CorrectionExtractor) TokenBudget() int { return 0 }

func (CorrectionExtractor) Run(_ context.Context, in *Input) (*Result, error) {
	result := &Result{}
	for _, m := range correctionPattern.FindAllStringSubmatchIndex(in.Text, -1) {
		correct := in.Text[m[2]:m[3]]
		wrong := in.Text[m[4]:m[5]]
		if strings.EqualFold(correct, wrong) {
			continue
		}
		result.Spans = append(result.Spans, Span{
			Start: m[0], End: m[1], Label: "correction", Text: in.Text[m[0]:m[1]],
		})
		result.Corrections = append(result.Corrections, CorrectionPair{
			WrongText:   wrong,
			CorrectText: correct,
		})
	}
	return result, nil
}

// namePattern matches runs of capitalized words. Sentence-initial words are
// filtered out below unless they recur capitalized mid-sentence.
var namePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// sentenceStart marks offsets that begin a sentence.
var sentenceStart = regexp.MustCompile(`(?:^|[.!?]\s+)`)

// NameSpanExtractor finds candidate proper-name spans deterministically so
// entity mentions survive even when the capability extractor is disabled.
type NameSpanExtractor struct{}

func (NameSpanExtractor) Name() string     { return "name_spans" }
func (NameSpanExtractor) Kind() Kind       { return KindPattern }
func (NameSpanExtractor) TokenBudget() int { return 0 }

func (NameSpanExtractor) Run(_ context.Context, in *Input) (*Result, error) {
	starts := map[int]bool{}
	for _, loc := range sentenceStart.FindAllStringIndex(in.Text, -1) {
		starts[loc[1]] = true
	}

	result := &Result{}
	for _, m := range namePattern.FindAllStringIndex(in.Text, -1) {
		text := in.Text[m[0]:m[1]]
		// A single capitalized word at sentence start is almost always just
		// sentence case, not a name.
		if starts[m[0]] && !strings.Contains(text, " ") {
			continue
		}
		if stopNames[strings.ToLower(text)] {
			continue
		}
		result.Spans = append(result.Spans, Span{Start: m[0], End: m[1], Label: "name", Text: text})
	}
	return result, nil
}

// stopNames filters capitalized tokens that are never referents.
var stopNames = map[string]bool{
	"i": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"ok": true, "okay": true, "actually": true,
}

var temporalPattern = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last\s+(?:week|month|year|night)|next\s+(?:week|month|year)|this\s+(?:morning|afternoon|evening|week))\b`)

// TemporalMarkerExtractor tags temporal expressions; derivation uses them to
// assign episodic temporality to claims.
type TemporalMarkerExtractor struct{}

func (TemporalMarkerExtractor) Name() string     { return "temporal_markers" }
func (TemporalMarkerExtractor) Kind() Kind       { return KindPattern }
func (TemporalMarkerExtractor) TokenBudget() int { return 0 }

func (TemporalMarkerExtractor) Run(_ context.Context, in *Input) (*Result, error) {
	result := &Result{}
	for _, m := range temporalPattern.FindAllStringIndex(in.Text, -1) {
		result.Spans = append(result.Spans, Span{
			Start: m[0], End: m[1], Label: "temporal", Text: in.Text[m[0]:m[1]],
		})
	}
	return result, nil
}
