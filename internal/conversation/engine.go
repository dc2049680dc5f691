package conversation

import (
	"errors"
	"sync"
	"time"

	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/scoring"
	sessiondomain "maya-assessment/backend/internal/session/domain"
)

// ErrConversationClosed is returned when a turn arrives after the dialogue
// reached its terminal stage. The service layer maps it to SessionNotActive.
var ErrConversationClosed = errors.New("conversation already closed")

// Config holds the stage-advance parameters. The caps and allowances mirror
// the exam format; they are configurable but the defaults are the product
// behavior.
type Config struct {
	Part1MaxQuestions int
	Part3MaxQuestions int
	Part2PrepSeconds  int
	Part2SpeakSeconds int
}

// DefaultConfig returns the standard exam parameters.
func DefaultConfig() Config {
	return Config{
		Part1MaxQuestions: 6,
		Part3MaxQuestions: 4,
		Part2PrepSeconds:  60,
		Part2SpeakSeconds: 120,
	}
}

// Prompt is the examiner's next utterance. PrepSeconds/SpeakSeconds are
// communicated allowances only; timing is enforced client-side.
type Prompt struct {
	Stage        Stage  `json:"stage"`
	Text         string `json:"text"`
	PrepSeconds  int    `json:"prep_seconds,omitempty"`
	SpeakSeconds int    `json:"speak_seconds,omitempty"`
}

// TurnResult is the outcome of processing one user turn.
type TurnResult struct {
	Recorded           Response
	Notes              []Note
	Prompt             Prompt
	AssessmentComplete bool
}

// Engine drives one session's dialogue. Not shared: exactly one Engine exists
// per session, and its mutex only guards against misbehaving callers — turns
// are expected to arrive serialized per session.
type Engine struct {
	mu        sync.Mutex
	sessionID string

	intro []*questiondomain.Question
	part1 []*questiondomain.Question
	part2 []*questiondomain.Question
	part3 []*questiondomain.Question

	assessmentType questiondomain.AssessmentType
	evaluator      Evaluator
	cfg            Config
	nowF           func() time.Time

	state     State
	completed bool
}

// NewEngine builds the engine for one session from its reserved questions.
func NewEngine(sess *sessiondomain.Session, questions map[questiondomain.Category][]*questiondomain.Question, evaluator Evaluator, cfg Config) *Engine {
	if evaluator == nil {
		evaluator = NewHeuristicEvaluator()
	}
	return &Engine{
		sessionID:      sess.ID,
		assessmentType: sess.AssessmentType,
		intro:          questions[questiondomain.CategoryIntro],
		part1:          questions[questiondomain.CategoryPart1],
		part2:          questions[questiondomain.CategoryPart2],
		part3:          questions[questiondomain.CategoryPart3],
		evaluator:      evaluator,
		cfg:            cfg,
		nowF:           func() time.Time { return time.Now().UTC() },
		state:          State{Stage: StageGreeting},
	}
}

// SessionID returns the session this engine belongs to.
func (e *Engine) SessionID() string { return e.sessionID }

// Stage returns the current dialogue stage.
func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Stage
}

// Initialize returns the opening prompt. The stage stays GREETING until the
// first user turn arrives.
func (e *Engine) Initialize() Prompt {
	return Prompt{Stage: StageGreeting, Text: e.questionText(e.intro, 0, scriptGreeting)}
}

// ProcessTurn records the user's response for the current stage, evaluates it,
// and advances the state machine. Returns ErrConversationClosed after the
// terminal stage has been reached. Stages never repeat and never go backwards;
// the only early exits are the Part 1 / Part 3 list-exhaustion paths.
func (e *Engine) ProcessTurn(text string, audioSeconds float64) (*TurnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.completed {
		return nil, ErrConversationClosed
	}

	now := e.nowF()
	resp := Response{Text: text, Duration: audioSeconds, Stage: e.state.Stage, Timestamp: now}
	e.state.Responses = append(e.state.Responses, resp)

	notes := e.evaluator.Evaluate(text, audioSeconds, e.state.Stage)
	e.state.Notes = append(e.state.Notes, notes...)

	prompt, complete := e.advance()
	if complete {
		e.completed = true
	}

	return &TurnResult{
		Recorded:           resp,
		Notes:              notes,
		Prompt:             prompt,
		AssessmentComplete: complete,
	}, nil
}

// advance computes the next stage and prompt after a turn at the current
// stage. Returns complete=true when the dialogue transitions into CLOSING.
func (e *Engine) advance() (Prompt, bool) {
	switch e.state.Stage {
	case StageGreeting:
		e.state.Stage = StageIdentityConfirm
		return Prompt{Stage: StageIdentityConfirm, Text: e.questionText(e.intro, 1, scriptIdentityConfirm)}, false

	case StageIdentityConfirm:
		e.state.Stage = StagePart1Intro
		return Prompt{Stage: StagePart1Intro, Text: e.questionText(e.intro, 2, scriptPart1Intro)}, false

	case StagePart1Intro:
		e.state.Stage = StagePart1Questions
		e.state.Part1Asked = 1
		return Prompt{Stage: StagePart1Questions, Text: e.questionText(e.part1, 0, "")}, false

	case StagePart1Questions:
		if e.state.Part1Asked < e.part1Limit() {
			q := e.questionText(e.part1, e.state.Part1Asked, "")
			e.state.Part1Asked++
			return Prompt{Stage: StagePart1Questions, Text: q}, false
		}
		e.state.Stage = StagePart2Brief
		return Prompt{
			Stage:        StagePart2Brief,
			Text:         scriptPart2Brief(e.cfg.Part2PrepSeconds, e.cfg.Part2SpeakSeconds),
			PrepSeconds:  e.cfg.Part2PrepSeconds,
			SpeakSeconds: e.cfg.Part2SpeakSeconds,
		}, false

	case StagePart2Brief:
		e.state.Stage = StagePart2Prep
		return Prompt{
			Stage:       StagePart2Prep,
			Text:        scriptPart2Prep(e.questionText(e.part2, 0, ""), e.cfg.Part2PrepSeconds),
			PrepSeconds: e.cfg.Part2PrepSeconds,
		}, false

	case StagePart2Prep:
		e.state.Stage = StagePart2Speak
		return Prompt{
			Stage:        StagePart2Speak,
			Text:         scriptPart2Speak(e.cfg.Part2SpeakSeconds),
			SpeakSeconds: e.cfg.Part2SpeakSeconds,
		}, false

	case StagePart2Speak:
		e.state.Stage = StagePart2Followup
		return Prompt{Stage: StagePart2Followup, Text: scriptPart2FollowUp}, false

	case StagePart2Followup:
		e.state.Stage = StagePart3Intro
		return Prompt{Stage: StagePart3Intro, Text: scriptPart3Intro}, false

	case StagePart3Intro:
		e.state.Stage = StagePart3Discussion
		e.state.Part3Asked = 1
		return Prompt{Stage: StagePart3Discussion, Text: e.questionText(e.part3, 0, "")}, false

	case StagePart3Discussion:
		if e.state.Part3Asked < e.part3Limit() {
			q := e.questionText(e.part3, e.state.Part3Asked, "")
			e.state.Part3Asked++
			return Prompt{Stage: StagePart3Discussion, Text: q}, false
		}
		e.state.Stage = StageClosing
		return Prompt{Stage: StageClosing, Text: scriptClosing}, true

	default:
		return Prompt{Stage: StageClosing, Text: scriptClosing}, true
	}
}

// part1Limit is the lesser of the configured cap and the reserved list length.
func (e *Engine) part1Limit() int {
	if len(e.part1) < e.cfg.Part1MaxQuestions {
		return len(e.part1)
	}
	return e.cfg.Part1MaxQuestions
}

func (e *Engine) part3Limit() int {
	if len(e.part3) < e.cfg.Part3MaxQuestions {
		return len(e.part3)
	}
	return e.cfg.Part3MaxQuestions
}

func (e *Engine) questionText(qs []*questiondomain.Question, i int, fallback string) string {
	if i >= 0 && i < len(qs) {
		return qs[i].Text
	}
	return fallback
}

// Summary snapshots the conversation for the scorer. This is the only way
// engine state leaves the engine.
func (e *Engine) Summary() *scoring.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := make(map[string]int)
	responses := make([]scoring.SummaryResponse, 0, len(e.state.Responses))
	for _, r := range e.state.Responses {
		counts[r.Stage.Part()]++
		responses = append(responses, scoring.SummaryResponse{
			Text:            r.Text,
			DurationSeconds: r.Duration,
			Stage:           r.Stage.String(),
			Timestamp:       r.Timestamp,
		})
	}
	notes := make([]scoring.SummaryNote, 0, len(e.state.Notes))
	for _, n := range e.state.Notes {
		notes = append(notes, scoring.SummaryNote{
			Criterion:   n.Criterion,
			Observation: n.Observation,
			Stage:       n.Stage.String(),
		})
	}
	status := "in_progress"
	if e.completed {
		status = "completed"
	}
	return &scoring.Summary{
		SessionID:            e.sessionID,
		AssessmentType:       string(e.assessmentType),
		ResponseCountsByPart: counts,
		Responses:            responses,
		EvaluationNotes:      notes,
		CompletionStatus:     status,
	}
}
