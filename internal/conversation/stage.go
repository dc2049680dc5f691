// Package conversation implements the per-session assessment dialogue:
// a finite state machine ("Maya") that walks the exam stages in a fixed
// order, records user turns, and collects heuristic evaluation notes for the
// external scorer. One Engine instance exists per session, owned by the
// Registry; there is no shared singleton.
package conversation

import "encoding/json"

// Stage is the dialogue state. Stages advance monotonically in the declared
// order; the only variable-length stages are the Part 1 and Part 3 question
// loops, which may exit early when the session's reserved list runs out.
type Stage int

const (
	StageGreeting Stage = iota
	StageIdentityConfirm
	StagePart1Intro
	StagePart1Questions
	StagePart2Brief
	StagePart2Prep
	StagePart2Speak
	StagePart2Followup
	StagePart3Intro
	StagePart3Discussion
	StageClosing // terminal
)

var stageNames = map[Stage]string{
	StageGreeting:        "GREETING",
	StageIdentityConfirm: "IDENTITY_CONFIRM",
	StagePart1Intro:      "PART1_INTRO",
	StagePart1Questions:  "PART1_QUESTIONS",
	StagePart2Brief:      "PART2_BRIEF",
	StagePart2Prep:       "PART2_PREP",
	StagePart2Speak:      "PART2_SPEAK",
	StagePart2Followup:   "PART2_FOLLOWUP",
	StagePart3Intro:      "PART3_INTRO",
	StagePart3Discussion: "PART3_DISCUSSION",
	StageClosing:         "CLOSING",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON emits the stage name; the ordinal never leaves the process.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Part returns which exam part the stage belongs to, for response counting.
func (s Stage) Part() string {
	switch s {
	case StageGreeting, StageIdentityConfirm:
		return "opening"
	case StagePart1Intro, StagePart1Questions:
		return "part1"
	case StagePart2Brief, StagePart2Prep, StagePart2Speak, StagePart2Followup:
		return "part2"
	case StagePart3Intro, StagePart3Discussion:
		return "part3"
	default:
		return "closing"
	}
}
