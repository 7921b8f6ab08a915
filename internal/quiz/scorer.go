package quiz

import "math"

// ExamRules are the parameters of the scored exam.
type ExamRules struct {
	Questions int     // questions consumed before the exam ends
	Penalty   float64 // subtracted for each wrong answer
	PassMark  float64 // minimum final score that passes
}

// DefaultExamRules is the standard 33-question exam.
var DefaultExamRules = ExamRules{Questions: 33, Penalty: 0.33, PassMark: 18}

// Scorer holds the running counters and the exam score.
//
// The exam score is kept in integer hundredths so that repeated penalties
// do not accumulate floating point error and the pass boundary is exact.
type Scorer struct {
	rules ExamRules

	seen    int
	correct int
	wrong   int

	examHundredths int
	examDone       int
}

// NewScorer returns a zeroed scorer using rules.
func NewScorer(rules ExamRules) *Scorer {
	return &Scorer{rules: rules}
}

// Rules returns the exam rules in use.
func (s *Scorer) Rules() ExamRules { return s.rules }

// RecordAnswer counts one fresh answer in the running counters.
func (s *Scorer) RecordAnswer(correct bool) {
	s.seen++
	if correct {
		s.correct++
	} else {
		s.wrong++
	}
}

// RecordExamAnswer applies one fresh exam answer to the exam score.
func (s *Scorer) RecordExamAnswer(correct bool) {
	if correct {
		s.examHundredths += 100
	} else {
		s.examHundredths -= hundredths(s.rules.Penalty)
	}
	s.examDone++
}

// RecordExamSkip counts a skipped exam question without scoring it.
func (s *Scorer) RecordExamSkip() {
	s.examDone++
}

// ResetRunning zeroes the seen/correct/wrong counters.
func (s *Scorer) ResetRunning() {
	s.seen, s.correct, s.wrong = 0, 0, 0
}

// ResetExam zeroes the exam score and progress.
func (s *Scorer) ResetExam() {
	s.examHundredths, s.examDone = 0, 0
}

func (s *Scorer) Seen() int    { return s.seen }
func (s *Scorer) Correct() int { return s.correct }
func (s *Scorer) Wrong() int   { return s.wrong }

// EstimatedGrade projects the running counters onto the exam scale. It is
// advisory only and 0 before any answer.
func (s *Scorer) EstimatedGrade() float64 {
	if s.seen == 0 {
		return 0
	}
	net := float64(s.correct) - s.rules.Penalty*float64(s.wrong)
	return net / float64(s.seen) * float64(s.rules.Questions)
}

// ExamScore returns the accumulated exam score.
func (s *Scorer) ExamScore() float64 {
	return float64(s.examHundredths) / 100
}

// ExamDone returns how many exam questions have been consumed.
func (s *Scorer) ExamDone() int { return s.examDone }

// ExamFinished reports whether the exam has consumed all its questions.
func (s *Scorer) ExamFinished() bool {
	return s.examDone >= s.rules.Questions
}

// FinalScore returns the exam score rounded to two decimals.
func (s *Scorer) FinalScore() float64 {
	return math.Round(s.ExamScore()*100) / 100
}

// Passed reports whether the final score reaches the pass mark.
func (s *Scorer) Passed() bool {
	return s.examHundredths >= hundredths(s.rules.PassMark)
}

func hundredths(v float64) int {
	return int(math.Round(v * 100))
}
