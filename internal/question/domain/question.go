// Package domain defines the question bank types: questions are immutable
// content partitioned into shards per (assessment_type, category) pool, with
// only the active flag mutable after creation.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// AssessmentType identifies one of the supported exam formats.
type AssessmentType string

const (
	AssessmentAcademicSpeaking AssessmentType = "academic_speaking"
	AssessmentGeneralSpeaking  AssessmentType = "general_speaking"
	AssessmentAcademicWriting  AssessmentType = "academic_writing"
	AssessmentGeneralWriting   AssessmentType = "general_writing"
)

// ErrInvalidAssessmentType is returned for an unknown assessment type. Rejected before any storage access.
var ErrInvalidAssessmentType = errors.New("invalid assessment type")

// ErrInvalidCategory is returned for an unknown question category. Rejected before any storage access.
var ErrInvalidCategory = errors.New("invalid question category")

// ParseAssessmentType validates s and returns it as an AssessmentType.
func ParseAssessmentType(s string) (AssessmentType, error) {
	switch AssessmentType(s) {
	case AssessmentAcademicSpeaking, AssessmentGeneralSpeaking, AssessmentAcademicWriting, AssessmentGeneralWriting:
		return AssessmentType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAssessmentType, s)
}

// Category identifies which part of the exam a question belongs to.
type Category string

const (
	CategoryIntro        Category = "intro"
	CategoryPart1        Category = "part1"
	CategoryPart2        Category = "part2"
	CategoryPart3        Category = "part3"
	CategoryWritingTask1 Category = "writing_task1"
	CategoryWritingTask2 Category = "writing_task2"
)

// ParseCategory validates s and returns it as a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryIntro, CategoryPart1, CategoryPart2, CategoryPart3, CategoryWritingTask1, CategoryWritingTask2:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// RepeatPolicy controls whether a question may be served to the same user more than once.
type RepeatPolicy string

const (
	// RepeatPolicyRepeatable questions (e.g. scripted introduction lines) may be
	// reused across sessions and users and are never recorded in the usage ledger.
	RepeatPolicyRepeatable RepeatPolicy = "REPEATABLE"
	// RepeatPolicyUnique questions are consumed exactly once per (user, assessment_type).
	RepeatPolicyUnique RepeatPolicy = "UNIQUE"
)

// Question is one bank entry. Content is append-only; only Active may change after creation.
// The (AssessmentType, Category, Shard) triple determines its storage partition and is
// immutable once written.
type Question struct {
	ID             string
	AssessmentType AssessmentType
	Category       Category
	Shard          int
	Text           string
	MediaRef       string // optional reference to an audio/image asset; empty when none
	RepeatPolicy   RepeatPolicy
	Active         bool
	CreatedAt      time.Time
}

// Validate checks enum fields and shard bounds. shardCount is the configured pool shard count.
func (q *Question) Validate(shardCount int) error {
	if q.ID == "" {
		return errors.New("question id is required")
	}
	if _, err := ParseAssessmentType(string(q.AssessmentType)); err != nil {
		return err
	}
	if _, err := ParseCategory(string(q.Category)); err != nil {
		return err
	}
	if q.Shard < 0 || q.Shard >= shardCount {
		return fmt.Errorf("shard %d out of range [0,%d)", q.Shard, shardCount)
	}
	if q.Text == "" {
		return errors.New("question text is required")
	}
	if q.RepeatPolicy != RepeatPolicyRepeatable && q.RepeatPolicy != RepeatPolicyUnique {
		return fmt.Errorf("invalid repeat policy %q", q.RepeatPolicy)
	}
	speaking := q.AssessmentType == AssessmentAcademicSpeaking || q.AssessmentType == AssessmentGeneralSpeaking
	writingCategory := q.Category == CategoryWritingTask1 || q.Category == CategoryWritingTask2
	if speaking == writingCategory {
		return fmt.Errorf("category %s not valid for assessment type %s", q.Category, q.AssessmentType)
	}
	return nil
}
