package quiz

import (
	"fmt"
	"math/rand/v2"

	"github.com/SamVia/quizzz/internal/model"
)

// QuestionSet is an immutable, ordered sequence of questions for one topic.
// The order is randomized once at construction and then consumed in order.
type QuestionSet struct {
	topic   string
	arity   int
	records []model.QuestionRecord
}

// NewQuestionSet validates records and returns a set shuffled with rng.
// Every record must have the same arity (3 or 4) and letter solutions must
// reference an existing slot.
func NewQuestionSet(topic string, records []model.QuestionRecord, rng *rand.Rand) (*QuestionSet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("question set %q is empty", topic)
	}
	arity := len(records[0].Options)
	if arity != 3 && arity != 4 {
		return nil, fmt.Errorf("question set %q: unsupported arity %d", topic, arity)
	}
	for _, r := range records {
		if len(r.Options) != arity {
			return nil, fmt.Errorf("question set %q: record at position %d has %d options, want %d",
				topic, r.Position, len(r.Options), arity)
		}
		if i := model.LetterSlot(r.Solution); i >= arity {
			return nil, fmt.Errorf("question set %q: record at position %d references slot %s",
				topic, r.Position, model.OptionLetters[i])
		}
	}

	shuffled := make([]model.QuestionRecord, len(records))
	copy(shuffled, records)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return &QuestionSet{topic: topic, arity: arity, records: shuffled}, nil
}

// Topic returns the name of the topic the set belongs to.
func (s *QuestionSet) Topic() string { return s.topic }

// Arity returns the number of options every record carries.
func (s *QuestionSet) Arity() int { return s.arity }

// Len returns the number of records in the set.
func (s *QuestionSet) Len() int { return len(s.records) }

// At returns the record at index i of the shuffled order.
func (s *QuestionSet) At(i int) model.QuestionRecord { return s.records[i] }

// Reshuffled returns a new set with the same records in a fresh order.
func (s *QuestionSet) Reshuffled(rng *rand.Rand) *QuestionSet {
	shuffled := make([]model.QuestionRecord, len(s.records))
	copy(shuffled, s.records)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &QuestionSet{topic: s.topic, arity: s.arity, records: shuffled}
}
