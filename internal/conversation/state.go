package conversation

import "time"

// Response is one recorded user turn. Transient: lives only inside the
// engine's state and the scorer summary, never queried by other components.
type Response struct {
	Text      string
	Duration  float64 // audio duration in seconds
	Stage     Stage
	Timestamp time.Time
}

// Note is one heuristic observation, tagged with the IELTS criterion it
// informs. Notes are best-effort input for the scorer, never authoritative.
type Note struct {
	Criterion   string
	Observation string
	Stage       Stage
}

// State is the engine's transient per-session state. Owned exclusively by the
// Engine handling the session; exposed to the outside only via the Summary
// snapshot built at closing.
type State struct {
	Stage      Stage
	Part1Asked int
	Part3Asked int
	Responses  []Response
	Notes      []Note
}
