package service

import (
	questiondomain "maya-assessment/backend/internal/question/domain"
)

// Requirement declares how many questions of one category a session needs.
type Requirement struct {
	Category questiondomain.Category
	Count    int
}

// requirements is the static table of per-assessment-type question needs.
// Order matters: it is the order categories are allocated and the order the
// conversation consumes them.
var requirements = map[questiondomain.AssessmentType][]Requirement{
	questiondomain.AssessmentAcademicSpeaking: {
		{Category: questiondomain.CategoryIntro, Count: 3},
		{Category: questiondomain.CategoryPart1, Count: 10},
		{Category: questiondomain.CategoryPart2, Count: 1},
		{Category: questiondomain.CategoryPart3, Count: 4},
	},
	questiondomain.AssessmentGeneralSpeaking: {
		{Category: questiondomain.CategoryIntro, Count: 3},
		{Category: questiondomain.CategoryPart1, Count: 10},
		{Category: questiondomain.CategoryPart2, Count: 1},
		{Category: questiondomain.CategoryPart3, Count: 4},
	},
	questiondomain.AssessmentAcademicWriting: {
		{Category: questiondomain.CategoryWritingTask1, Count: 1},
		{Category: questiondomain.CategoryWritingTask2, Count: 1},
	},
	questiondomain.AssessmentGeneralWriting: {
		{Category: questiondomain.CategoryWritingTask1, Count: 1},
		{Category: questiondomain.CategoryWritingTask2, Count: 1},
	},
}

// Requirements returns the question needs for an assessment type.
func Requirements(at questiondomain.AssessmentType) []Requirement {
	return requirements[at]
}
