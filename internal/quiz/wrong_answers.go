package quiz

import "github.com/SamVia/quizzz/internal/model"

// WrongAnswerTracker is the working set of questions answered wrong.
// Records are unique by original position and kept in insertion order.
type WrongAnswerTracker struct {
	records   []model.QuestionRecord
	positions map[int]bool
}

// NewWrongAnswerTracker returns an empty tracker.
func NewWrongAnswerTracker() *WrongAnswerTracker {
	return &WrongAnswerTracker{positions: make(map[int]bool)}
}

// Add tracks rec unless a record with the same position is already present.
// It reports whether rec was added.
func (t *WrongAnswerTracker) Add(rec model.QuestionRecord) bool {
	if t.positions[rec.Position] {
		return false
	}
	t.positions[rec.Position] = true
	t.records = append(t.records, rec)
	return true
}

// PruneByPrompt removes every tracked record whose prompt equals prompt and
// returns how many were removed.
func (t *WrongAnswerTracker) PruneByPrompt(prompt string) int {
	kept := t.records[:0]
	removed := 0
	for _, r := range t.records {
		if r.Prompt == prompt {
			delete(t.positions, r.Position)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.records = kept
	return removed
}

// Clear empties the tracker.
func (t *WrongAnswerTracker) Clear() {
	t.records = nil
	t.positions = make(map[int]bool)
}

// Len returns the number of tracked records.
func (t *WrongAnswerTracker) Len() int { return len(t.records) }

// Contains reports whether a record with position pos is tracked.
func (t *WrongAnswerTracker) Contains(pos int) bool { return t.positions[pos] }

// Records returns a copy of the tracked records in insertion order.
func (t *WrongAnswerTracker) Records() []model.QuestionRecord {
	out := make([]model.QuestionRecord, len(t.records))
	copy(out, t.records)
	return out
}
