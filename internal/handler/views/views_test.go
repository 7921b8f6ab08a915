package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	appI18n "github.com/SamVia/quizzz/internal/i18n"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/quiz"
)

func renderPage(t *testing.T, p Page) string {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
	ctx = model.ContextWithBasePath(ctx, "/quiz")
	ctx = model.ContextWithCSRFToken(ctx, "tok123")

	var buf bytes.Buffer
	if err := IndexPage(p).Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestIndexPageNoTopic(t *testing.T) {
	html := renderPage(t, Page{})
	for _, want := range []string{
		"No question files found.",
		"Pick a topic",
		`action="/quiz/topics/rescan"`,
		`action="/quiz/topics/upload"`,
		`name="replace"`,
		`value="tok123"`,
		`href="/quiz/?lang=it"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestIndexPageAnsweredQuestion(t *testing.T) {
	p := Page{
		Topics:  []model.Topic{{ID: 7, Title: "Storia", Count: 2, Arity: 3}, {ID: 8, Title: "Rotto", LoadError: "bad"}},
		TopicID: 7,
		View: quiz.View{
			Topic:       "Storia",
			Mode:        quiz.ModeNormal.String(),
			Phase:       quiz.PhaseAnswered.String(),
			Serial:      4,
			HasQuestion: true,
			Prompt:      "Chi <b>fondò</b> Roma?",
			Options: []quiz.OptionView{
				{Index: 0, Text: "Remo", Class: quiz.ClassSelectedWrong},
				{Index: 1, Text: "Romolo", Class: quiz.ClassCorrect},
				{Index: 2, Text: "Numa", Class: quiz.ClassOther},
			},
			CorrectAnswer: "Romolo",
			Rationale:     "La leggenda.",
			InMistakes:    true,
			Seen:          1,
			Wrong:         1,
			WrongCount:    1,
		},
		ExplainerOn: true,
	}
	html := renderPage(t, p)

	for _, want := range []string{
		"Chi &lt;b&gt;fondò&lt;/b&gt; Roma?",
		`class="option selected-wrong"`,
		`class="option correct"`,
		`class="option other"`,
		"The correct answer is: Romolo",
		"La leggenda.",
		`action="/quiz/explain"`,
		`action="/quiz/next"`,
		`name="serial" value="4"`,
		"1 mistake saved",
		"topic active",
		"2 questions",
		"Saved in your mistakes",
		`value="1" disabled>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page should contain %q", want)
		}
	}
	if strings.Contains(html, `action="/quiz/skip"`) {
		t.Error("answered question should not offer skip")
	}
}

func TestIndexPageExamFinished(t *testing.T) {
	p := Page{
		TopicID: 1,
		View: quiz.View{
			Topic:        "Storia",
			Mode:         quiz.ModeExam.String(),
			Phase:        quiz.PhaseSelecting.String(),
			ExamDone:     33,
			ExamTotal:    33,
			ExamScore:    15.71,
			ExamFinished: true,
			FinalScore:   15.71,
			PassMark:     18,
			Notice:       quiz.NoticeExamFinished,
			Halted:       true,
		},
	}
	html := renderPage(t, p)
	for _, want := range []string{"Question 33 of 33", "Not passed: 15.71 (pass mark 18.00).", "The exam is over.", "Restart exam"} {
		if !strings.Contains(html, want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestIndexPageTopicError(t *testing.T) {
	html := renderPage(t, Page{TopicID: 3, TopicError: "missing columns: solution"})
	if !strings.Contains(html, "This file could not be loaded: missing columns: solution") {
		t.Error("page should show the load error")
	}
}
