// Package views renders the quiz pages as templ components.
package views

//go:generate templ generate

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	appI18n "github.com/SamVia/quizzz/internal/i18n"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/quiz"
)

// Page is everything the index page shows.
type Page struct {
	View        quiz.View
	Topics      []model.Topic
	TopicID     int64  // selected topic, 0 for none
	TopicError  string // load error of the selected topic
	ExplainerOn bool
	Flash       string // message ID shown once
}

var noticeMessages = map[quiz.Notice]string{
	quiz.NoticeExhausted:        "NoticeExhausted",
	quiz.NoticePracticeComplete: "NoticePracticeComplete",
	quiz.NoticeNoMistakes:       "NoticeNoMistakes",
	quiz.NoticeExamFinished:     "NoticeExamFinished",
}

func path(ctx context.Context, p string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + p)
}

func langURL(ctx context.Context, lang string) templ.SafeURL {
	return path(ctx, "/?lang="+lang)
}

func pageTitle(ctx context.Context, topic string) string {
	title := appI18n.T(ctx, "AppTitle")
	if topic != "" {
		title += " · " + topic
	}
	return title
}

func grade(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func topicClass(active bool) string {
	if active {
		return "topic active"
	}
	return "topic"
}

func optionClass(o quiz.OptionView) string {
	return "option " + string(o.Class)
}
