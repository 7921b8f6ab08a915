package quiz

import (
	"math/rand/v2"

	"github.com/SamVia/quizzz/internal/model"
)

// Phase is the answer phase of the current question.
type Phase int

const (
	PhaseSelecting Phase = iota // waiting for the user to pick an option
	PhaseAnswered               // an option was picked; feedback is shown
)

func (p Phase) String() string {
	if p == PhaseAnswered {
		return "answered"
	}
	return "selecting"
}

// Session is the per-question state of the active quiz.
type Session struct {
	// Current is the question being shown (nil before the first draw).
	Current *model.QuestionRecord

	// Options is Current's option texts in display order.
	Options []string

	// Phase is the answer phase of Current.
	Phase Phase

	// Selection is the option text the user picked ("" while selecting).
	Selection string

	// Cursor indexes the next record to draw from the active set.
	Cursor int

	// Serial is incremented on every draw. Events tagged with an older
	// serial refer to a question that is no longer shown.
	Serial int

	// Explanation is an explainer-generated rationale for Current.
	Explanation string

	// skipCounted is set once an exam skip has been counted for Current.
	// It backs the serial and phase checks in Skip, which reject repeats
	// before the flag is consulted.
	skipCounted bool
}

// clear forgets the current question but keeps the cursor and serial.
func (s *Session) clear() {
	s.Current = nil
	s.Options = nil
	s.Phase = PhaseSelecting
	s.Selection = ""
	s.Explanation = ""
	s.skipCounted = false
}

// reset clears the current question and rewinds the cursor.
func (s *Session) reset() {
	s.clear()
	s.Cursor = 0
}

// load makes rec the current question with a fresh option order.
func (s *Session) load(rec model.QuestionRecord, rng *rand.Rand) {
	opts := make([]string, len(rec.Options))
	copy(opts, rec.Options)
	rng.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})

	s.Current = &rec
	s.Options = opts
	s.Phase = PhaseSelecting
	s.Selection = ""
	s.Explanation = ""
	s.skipCounted = false
	s.Serial++
}

// hasOption reports whether choice is one of the displayed options.
func (s *Session) hasOption(choice string) bool {
	for _, o := range s.Options {
		if o == choice {
			return true
		}
	}
	return false
}
