package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/SamVia/quizzz/internal/model"
)

// Mode selects where questions come from and how answers are scored.
type Mode int

const (
	ModeNormal   Mode = iota // free practice over the whole topic
	ModePractice             // replay of the wrong-answer set
	ModeExam                 // scored exam with penalty and pass mark
)

func (m Mode) String() string {
	switch m {
	case ModePractice:
		return "practice"
	case ModeExam:
		return "exam"
	default:
		return "normal"
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return ModeNormal, nil
	case "practice":
		return ModePractice, nil
	case "exam":
		return ModeExam, nil
	}
	return ModeNormal, fmt.Errorf("unknown mode %q", s)
}

// Notice is a one-shot message for the presentation layer.
type Notice string

const (
	NoticeNone             Notice = ""
	NoticeExhausted        Notice = "exhausted"
	NoticePracticeComplete Notice = "practice-complete"
	NoticeNoMistakes       Notice = "no-mistakes"
	NoticeExamFinished     Notice = "exam-finished"
)

// Outcome describes the effect of a Submit call.
type Outcome struct {
	Fresh   bool // the call moved the question into the answered phase
	Correct bool // only meaningful when Fresh
}

// Controller drives one quiz session: question selection, answer handling,
// scoring, wrong-answer tracking and mode switches. It is not safe for
// concurrent use.
type Controller struct {
	id     string
	rng    *rand.Rand
	logger *slog.Logger
	rules  ExamRules

	topic   *QuestionSet // full set of the loaded topic
	active  *QuestionSet // set draws come from: topic or practice set
	mode    Mode
	session Session
	score   *Scorer
	wrong   *WrongAnswerTracker

	halted error
	notice Notice
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the random source used for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithExamRules overrides DefaultExamRules.
func WithExamRules(r ExamRules) Option {
	return func(c *Controller) { c.rules = r }
}

// NewController returns a controller with no topic loaded.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		id:     uuid.NewString(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: slog.Default(),
		rules:  DefaultExamRules,
		wrong:  NewWrongAnswerTracker(),
	}
	for _, o := range opts {
		o(c)
	}
	c.score = NewScorer(c.rules)
	c.logger = c.logger.With("session", c.id)
	return c
}

// ID returns the session identifier used in logs.
func (c *Controller) ID() string { return c.id }

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Topic returns the loaded topic name, or "" when none is loaded.
func (c *Controller) Topic() string {
	if c.topic == nil {
		return ""
	}
	return c.topic.Topic()
}

// Current returns the question on screen and the serial it was drawn with.
func (c *Controller) Current() (model.QuestionRecord, int, bool) {
	if c.session.Current == nil {
		return model.QuestionRecord{}, 0, false
	}
	return *c.session.Current, c.session.Serial, true
}

// WrongAnswers returns the tracked wrong answers in insertion order.
func (c *Controller) WrongAnswers() []model.QuestionRecord {
	return c.wrong.Records()
}

// LoadTopic replaces the question set with records of the named topic and
// resets the cursor, the counters and the wrong-answer set. Exam mode is
// kept and restarts on the new set; practice mode is left.
func (c *Controller) LoadTopic(name string, records []model.QuestionRecord) error {
	set, err := NewQuestionSet(name, records, c.rng)
	if err != nil {
		return err
	}
	c.topic = set
	c.active = set
	if c.mode == ModePractice {
		c.mode = ModeNormal
	}
	c.session.reset()
	c.score.ResetRunning()
	c.score.ResetExam()
	c.wrong.Clear()
	c.lift()
	c.logger.Info("topic loaded", "topic", name, "questions", set.Len(), "arity", set.Arity(), "mode", c.mode)
	return nil
}

// Unload drops the current topic, leaving the controller with nothing to
// draw until the next LoadTopic.
func (c *Controller) Unload() {
	c.topic = nil
	c.active = nil
	if c.mode == ModePractice {
		c.mode = ModeNormal
	}
	c.session.reset()
	c.score.ResetRunning()
	c.score.ResetExam()
	c.wrong.Clear()
	c.lift()
}

// EnsureQuestion draws a question when none is shown. It is safe to call
// on every render.
func (c *Controller) EnsureQuestion() error {
	if c.active == nil {
		return ErrNoTopic
	}
	if c.halted != nil {
		return c.halted
	}
	if c.session.Current != nil {
		return nil
	}
	return c.DrawNext()
}

// DrawNext advances to the next question of the active set. Exhaustion is
// handled per mode: practice returns to normal mode, exam mode cycles
// through a reshuffled topic set, normal mode halts with ErrExhausted.
func (c *Controller) DrawNext() error {
	if c.active == nil {
		return ErrNoTopic
	}
	c.notice = NoticeNone
	if c.mode == ModeExam && c.score.ExamFinished() {
		c.halt(ErrExamFinished, NoticeExamFinished)
		return ErrExamFinished
	}

	err := c.draw()
	if !errors.Is(err, ErrExhausted) {
		return err
	}

	switch c.mode {
	case ModePractice:
		c.logger.Info("practice set completed", "remaining_wrong", c.wrong.Len())
		c.leavePractice()
		c.notice = NoticePracticeComplete
		return c.draw()
	case ModeExam:
		c.logger.Debug("topic set exhausted during exam, reshuffling", "exam_done", c.score.ExamDone())
		c.topic = c.topic.Reshuffled(c.rng)
		c.active = c.topic
		c.session.Cursor = 0
		return c.draw()
	default:
		c.logger.Info("topic set exhausted", "topic", c.Topic(), "seen", c.score.Seen())
		c.halt(ErrExhausted, NoticeExhausted)
		return ErrExhausted
	}
}

// draw is the only place the cursor advances.
func (c *Controller) draw() error {
	if c.session.Cursor >= c.active.Len() {
		return ErrExhausted
	}
	rec := c.active.At(c.session.Cursor)
	c.session.Cursor++
	c.session.load(rec, c.rng)
	return nil
}

// Submit records choice as the answer to the question drawn with serial.
// Only the first submission for a question has any effect; later ones, and
// ones carrying a stale serial, return a zero Outcome and no error.
func (c *Controller) Submit(serial int, choice string) (Outcome, error) {
	s := &c.session
	if s.Current == nil || serial != s.Serial || s.Phase != PhaseSelecting {
		c.logger.Debug("ignoring answer", "serial", serial, "current_serial", s.Serial, "phase", s.Phase)
		return Outcome{}, nil
	}
	if !s.hasOption(choice) {
		return Outcome{}, ErrInvalidChoice
	}

	s.Selection = choice
	s.Phase = PhaseAnswered
	correct := strings.TrimSpace(choice) == s.Current.CorrectAnswer()
	c.onAnswered(*s.Current, correct)
	return Outcome{Fresh: true, Correct: correct}, nil
}

// SubmitIndex is Submit with the choice given as a position in the shown
// options, as the web form sends it.
func (c *Controller) SubmitIndex(serial, index int) (Outcome, error) {
	var choice string
	if index >= 0 && index < len(c.session.Options) {
		choice = c.session.Options[index]
	}
	return c.Submit(serial, choice)
}

// onAnswered applies the side effects of a fresh transition to answered.
func (c *Controller) onAnswered(rec model.QuestionRecord, correct bool) {
	if c.mode == ModePractice {
		if correct {
			n := c.wrong.PruneByPrompt(rec.Prompt)
			c.logger.Debug("practice success", "position", rec.Position, "pruned", n)
		}
		return
	}
	if c.mode == ModeExam {
		c.score.RecordExamAnswer(correct)
		if c.score.ExamFinished() {
			c.logger.Info("exam finished",
				"score", c.score.FinalScore(), "passed", c.score.Passed(), "done", c.score.ExamDone())
		}
	}
	c.score.RecordAnswer(correct)
	if !correct {
		c.wrong.Add(rec)
	}
}

// Next moves past an answered question.
func (c *Controller) Next(serial int) error {
	s := &c.session
	if s.Current == nil || serial != s.Serial || s.Phase != PhaseAnswered {
		return nil
	}
	return c.DrawNext()
}

// Skip moves past an unanswered question. In exam mode the skipped
// question counts as consumed, once, without affecting the score; a skip
// that completes the exam ends it instead of drawing.
func (c *Controller) Skip(serial int) error {
	s := &c.session
	if s.Current == nil || serial != s.Serial || s.Phase != PhaseSelecting {
		return nil
	}
	if c.mode == ModeExam && !s.skipCounted {
		s.skipCounted = true
		c.score.RecordExamSkip()
		if c.score.ExamFinished() {
			c.logger.Info("exam finished",
				"score", c.score.FinalScore(), "passed", c.score.Passed(), "done", c.score.ExamDone())
			c.halt(ErrExamFinished, NoticeExamFinished)
			return nil
		}
	}
	return c.DrawNext()
}

// SetMode switches to m.
func (c *Controller) SetMode(m Mode) error {
	switch m {
	case ModePractice:
		return c.EnterPractice()
	case ModeExam:
		return c.SetExam(true)
	default:
		if c.mode == ModePractice {
			c.ExitPractice()
			return nil
		}
		return c.SetExam(false)
	}
}

// EnterPractice starts replaying the wrong-answer set in random order.
func (c *Controller) EnterPractice() error {
	if c.topic == nil {
		return ErrNoTopic
	}
	if c.mode == ModePractice {
		return nil
	}
	if c.wrong.Len() == 0 {
		c.notice = NoticeNoMistakes
		return ErrNoMistakes
	}
	set, err := NewQuestionSet(c.topic.Topic(), c.wrong.Records(), c.rng)
	if err != nil {
		return fmt.Errorf("build practice set: %w", err)
	}
	if c.mode == ModeExam {
		c.score.ResetExam()
	}
	c.mode = ModePractice
	c.active = set
	c.session.reset()
	c.score.ResetRunning()
	c.lift()
	c.logger.Info("practice started", "questions", set.Len())
	return nil
}

// ExitPractice returns to normal mode over the full topic.
func (c *Controller) ExitPractice() {
	if c.mode != ModePractice {
		return
	}
	c.leavePractice()
	c.notice = NoticeNone
}

func (c *Controller) leavePractice() {
	c.mode = ModeNormal
	c.active = c.topic
	c.session.reset()
	c.halted = nil
}

// SetExam turns exam mode on (starting a fresh exam) or off.
func (c *Controller) SetExam(on bool) error {
	if c.topic == nil {
		return ErrNoTopic
	}
	if on {
		if c.mode == ModeExam {
			return nil
		}
		c.mode = ModeExam
		c.active = c.topic
		c.restartExam()
		c.logger.Info("exam started", "questions", c.rules.Questions)
		return nil
	}
	if c.mode != ModeExam {
		return nil
	}
	c.mode = ModeNormal
	c.score.ResetExam()
	c.session.clear()
	c.lift()
	return nil
}

// RestartExam zeroes the exam and the running counters and starts again
// from the first question.
// It does nothing outside exam mode.
func (c *Controller) RestartExam() {
	if c.mode != ModeExam {
		return
	}
	c.restartExam()
	c.logger.Info("exam restarted")
}

func (c *Controller) restartExam() {
	c.score.ResetExam()
	c.score.ResetRunning()
	c.session.reset()
	c.lift()
}

// RestartRound reshuffles the topic and starts it again in normal mode.
// The wrong-answer set is kept.
func (c *Controller) RestartRound() error {
	if c.topic == nil {
		return ErrNoTopic
	}
	if c.mode != ModeNormal {
		return nil
	}
	c.topic = c.topic.Reshuffled(c.rng)
	c.active = c.topic
	c.session.reset()
	c.score.ResetRunning()
	c.lift()
	return nil
}

// ClearWrongAnswers empties the wrong-answer set.
func (c *Controller) ClearWrongAnswers() {
	c.wrong.Clear()
}

// SetExplanation attaches a generated rationale to the answered question
// drawn with serial. It reports whether the explanation was stored.
func (c *Controller) SetExplanation(serial int, text string) bool {
	s := &c.session
	if s.Current == nil || serial != s.Serial || s.Phase != PhaseAnswered {
		return false
	}
	s.Explanation = text
	return true
}

func (c *Controller) halt(err error, n Notice) {
	c.halted = err
	c.notice = n
	c.session.clear()
}

func (c *Controller) lift() {
	c.halted = nil
	c.notice = NoticeNone
}
