package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IELTS criteria used to tag evaluation notes.
const (
	CriterionFluency = "fluency_and_coherence"
	CriterionLexical = "lexical_resource"
	CriterionGeneral = "general"
)

// Evaluator produces heuristic observations for one user turn. It must never
// fail: malformed input degrades to fewer (or zero) notes so the conversation
// keeps moving. Pluggable so the word-count heuristics can be replaced by a
// model without touching the state machine.
type Evaluator interface {
	Evaluate(text string, audioSeconds float64, stage Stage) []Note
}

// HeuristicEvaluator derives notes from word counts: speech rate, lexical
// variety, and response length against a per-stage expectation.
type HeuristicEvaluator struct{}

// NewHeuristicEvaluator returns the default word-count evaluator.
func NewHeuristicEvaluator() *HeuristicEvaluator {
	return &HeuristicEvaluator{}
}

// lengthRange is the expected response length in words for a stage.
type lengthRange struct {
	min, max int
}

// expectedLengths keys response-length expectations by stage. Stages absent
// from the table get no length note.
var expectedLengths = map[Stage]lengthRange{
	StageGreeting:        {3, 30},
	StageIdentityConfirm: {3, 30},
	StagePart1Intro:      {10, 50},
	StagePart1Questions:  {10, 50},
	StagePart2Speak:      {150, 300},
	StagePart2Followup:   {20, 80},
	StagePart3Intro:      {30, 100},
	StagePart3Discussion: {30, 100},
}

const (
	minSpeechRate     = 100.0 // words per minute
	maxSpeechRate     = 200.0
	minLexicalVariety = 0.5
	maxLexicalVariety = 0.8
)

// Evaluate returns heuristic notes for the turn. Responses under three
// characters are flagged unanalyzable and produce no further notes.
func (e *HeuristicEvaluator) Evaluate(text string, audioSeconds float64, stage Stage) []Note {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 3 {
		return []Note{{
			Criterion:   CriterionGeneral,
			Observation: "response too short to analyze",
			Stage:       stage,
		}}
	}

	words := strings.Fields(trimmed)
	total := len(words)
	var notes []Note

	if audioSeconds > 0 {
		wpm := float64(total) / audioSeconds * 60
		if wpm < minSpeechRate {
			notes = append(notes, Note{
				Criterion:   CriterionFluency,
				Observation: fmt.Sprintf("slow speech rate: %.0f wpm", wpm),
				Stage:       stage,
			})
		} else if wpm > maxSpeechRate {
			notes = append(notes, Note{
				Criterion:   CriterionFluency,
				Observation: fmt.Sprintf("rushed speech rate: %.0f wpm", wpm),
				Stage:       stage,
			})
		}
	}

	unique := make(map[string]struct{}, total)
	for _, w := range words {
		unique[strings.ToLower(strings.Trim(w, ".,!?;:'\""))] = struct{}{}
	}
	variety := float64(len(unique)) / float64(total)
	if variety < minLexicalVariety {
		notes = append(notes, Note{
			Criterion:   CriterionLexical,
			Observation: fmt.Sprintf("low lexical variety: %.2f", variety),
			Stage:       stage,
		})
	} else if variety > maxLexicalVariety {
		notes = append(notes, Note{
			Criterion:   CriterionLexical,
			Observation: fmt.Sprintf("high lexical variety: %.2f", variety),
			Stage:       stage,
		})
	}

	if r, ok := expectedLengths[stage]; ok {
		if total < r.min {
			notes = append(notes, Note{
				Criterion:   CriterionFluency,
				Observation: fmt.Sprintf("response shorter than expected: %d words (expected %d-%d)", total, r.min, r.max),
				Stage:       stage,
			})
		} else if total > r.max {
			notes = append(notes, Note{
				Criterion:   CriterionFluency,
				Observation: fmt.Sprintf("response longer than expected: %d words (expected %d-%d)", total, r.min, r.max),
				Stage:       stage,
			})
		}
	}

	return notes
}
