package quiz

import "errors"

var (
	// ErrExhausted is returned when the active question set has no more
	// questions to draw.
	ErrExhausted = errors.New("no more questions in the current set")
	// ErrExamFinished is returned when a draw is attempted after the exam
	// has consumed all its questions.
	ErrExamFinished = errors.New("exam finished")
	// ErrNoMistakes is returned when practice is requested with an empty
	// wrong-answer set.
	ErrNoMistakes = errors.New("no wrong answers to practice")
	// ErrInvalidChoice is returned when a submitted choice is not one of the
	// options shown for the current question.
	ErrInvalidChoice = errors.New("choice is not an option of the current question")
	// ErrNoTopic is returned when an operation needs a loaded topic.
	ErrNoTopic = errors.New("no topic loaded")
)
