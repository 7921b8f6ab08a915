package quiz

import "strings"

// OptionClass is the feedback classification of one displayed option.
type OptionClass string

const (
	ClassNone          OptionClass = "none" // not answered yet
	ClassCorrect       OptionClass = "correct"
	ClassSelectedWrong OptionClass = "selected-wrong"
	ClassOther         OptionClass = "other"
)

// OptionView is one option as the presentation layer shows it.
type OptionView struct {
	Index int         `json:"index"`
	Text  string      `json:"text"`
	Class OptionClass `json:"class"`
}

// View is a read-only snapshot of everything the presentation layer needs.
type View struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
	Mode      string `json:"mode"`
	Phase     string `json:"phase"`
	Serial    int    `json:"serial"`

	HasQuestion       bool         `json:"has_question"`
	Prompt            string       `json:"prompt,omitempty"`
	Options           []OptionView `json:"options,omitempty"`
	CorrectAnswer     string       `json:"correct_answer,omitempty"`
	AnsweredCorrectly bool         `json:"answered_correctly"`
	Rationale         string       `json:"rationale,omitempty"`
	Explanation       string       `json:"explanation,omitempty"`
	InMistakes        bool         `json:"in_mistakes"` // current question is in the wrong-answer set

	Seen           int     `json:"seen"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	EstimatedGrade float64 `json:"estimated_grade"`

	ExamDone     int     `json:"exam_done"`
	ExamTotal    int     `json:"exam_total"`
	ExamScore    float64 `json:"exam_score"`
	ExamFinished bool    `json:"exam_finished"`
	ExamPassed   bool    `json:"exam_passed"`
	FinalScore   float64 `json:"final_score"`
	PassMark     float64 `json:"pass_mark"`

	WrongCount        int `json:"wrong_count"`
	PracticeRemaining int `json:"practice_remaining"`

	Notice Notice `json:"notice,omitempty"`
	Halted bool   `json:"halted"`
}

// Answered reports whether the shown question has been answered.
func (v View) Answered() bool { return v.Phase == PhaseAnswered.String() }

// View returns a snapshot of the controller state. It never mutates it.
func (c *Controller) View() View {
	s := c.session
	v := View{
		SessionID:      c.id,
		Topic:          c.Topic(),
		Mode:           c.mode.String(),
		Phase:          s.Phase.String(),
		Serial:         s.Serial,
		Seen:           c.score.Seen(),
		Correct:        c.score.Correct(),
		Wrong:          c.score.Wrong(),
		EstimatedGrade: c.score.EstimatedGrade(),
		ExamDone:       c.score.ExamDone(),
		ExamTotal:      c.rules.Questions,
		ExamScore:      c.score.ExamScore(),
		PassMark:       c.rules.PassMark,
		WrongCount:     c.wrong.Len(),
		Notice:         c.notice,
		Halted:         c.halted != nil,
	}
	if c.mode == ModeExam && c.score.ExamFinished() {
		v.ExamFinished = true
		v.FinalScore = c.score.FinalScore()
		v.ExamPassed = c.score.Passed()
	}
	if c.mode == ModePractice && c.active != nil {
		v.PracticeRemaining = c.active.Len() - s.Cursor
	}
	if s.Current == nil {
		return v
	}

	rec := *s.Current
	v.HasQuestion = true
	v.Prompt = rec.Prompt
	v.Rationale = rec.Rationale
	v.Explanation = s.Explanation
	v.InMistakes = c.wrong.Contains(rec.Position)

	answered := s.Phase == PhaseAnswered
	correct := rec.CorrectAnswer()
	selection := strings.TrimSpace(s.Selection)
	if answered {
		v.CorrectAnswer = correct
		v.AnsweredCorrectly = selection == correct
	}
	v.Options = make([]OptionView, len(s.Options))
	for i, text := range s.Options {
		ov := OptionView{Index: i, Text: text, Class: ClassNone}
		if answered {
			opt := strings.TrimSpace(text)
			switch {
			case opt == correct:
				ov.Class = ClassCorrect
			case opt == selection:
				ov.Class = ClassSelectedWrong
			default:
				ov.Class = ClassOther
			}
		}
		v.Options[i] = ov
	}
	return v
}
