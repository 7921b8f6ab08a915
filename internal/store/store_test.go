package store

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/SamVia/quizzz/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords(n, arity int) []model.QuestionRecord {
	recs := make([]model.QuestionRecord, n)
	for i := range recs {
		opts := []string{"a", "b", "c", "d"}[:arity]
		recs[i] = model.QuestionRecord{
			Position:  i,
			Prompt:    fmt.Sprintf("Q%d", i),
			Options:   opts,
			Solution:  "A",
			Rationale: fmt.Sprintf("because %d", i),
		}
	}
	return recs
}

func saveTestTopic(t *testing.T, s *Store, source, title string, recs []model.QuestionRecord) int64 {
	t.Helper()
	id, err := s.SaveTopic(model.Topic{Source: source, Title: title, Hash: "h-" + source}, recs)
	if err != nil {
		t.Fatalf("SaveTopic: %v", err)
	}
	return id
}

func TestTopicCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return an empty list.
	list, err := s.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	id := saveTestTopic(t, s, "storia.csv", "Storia", testRecords(3, 4))
	got, err := s.GetTopic(id)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if got.Title != "Storia" {
		t.Errorf("expected title 'Storia', got %q", got.Title)
	}
	if got.Count != 3 {
		t.Errorf("expected count 3, got %d", got.Count)
	}
	if got.Arity != 4 {
		t.Errorf("expected arity 4, got %d", got.Arity)
	}
	if got.Hash != "h-storia.csv" {
		t.Errorf("unexpected hash %q", got.Hash)
	}
	if got.ImportedAt.IsZero() {
		t.Error("expected imported_at to be set")
	}

	// Not found.
	_, err = s.GetTopic(9999)
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	bySource, err := s.TopicBySource("storia.csv")
	if err != nil {
		t.Fatalf("TopicBySource: %v", err)
	}
	if bySource == nil || bySource.ID != id {
		t.Errorf("expected topic %d by source, got %+v", id, bySource)
	}
	missing, err := s.TopicBySource("nope.csv")
	if err != nil {
		t.Fatalf("TopicBySource missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown source, got %+v", missing)
	}

	// Ordered by title.
	saveTestTopic(t, s, "algebra.csv", "Algebra", testRecords(1, 3))
	list, err = s.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Algebra" {
		t.Fatalf("expected Algebra first, got %+v", list)
	}
}

func TestQuestionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		arity int
	}{
		{"three options", 3},
		{"four options", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			want := testRecords(5, tt.arity)
			id := saveTestTopic(t, s, "t.csv", "T", want)

			got, err := s.Questions(id)
			if err != nil {
				t.Fatalf("Questions: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("expected %d questions, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i].Position != want[i].Position || got[i].Prompt != want[i].Prompt {
					t.Errorf("question %d: got %+v, want %+v", i, got[i], want[i])
				}
				if len(got[i].Options) != tt.arity {
					t.Errorf("question %d: expected %d options, got %d", i, tt.arity, len(got[i].Options))
				}
				if got[i].Rationale != want[i].Rationale {
					t.Errorf("question %d: rationale %q, want %q", i, got[i].Rationale, want[i].Rationale)
				}
			}
		})
	}
}

func TestSaveTopicReplacesQuestions(t *testing.T) {
	s := newTestStore(t)
	id := saveTestTopic(t, s, "t.csv", "T", testRecords(5, 3))
	id2 := saveTestTopic(t, s, "t.csv", "T renamed", testRecords(2, 4))
	if id2 != id {
		t.Fatalf("expected same topic id %d, got %d", id, id2)
	}

	got, err := s.Questions(id)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions after replace, got %d", len(got))
	}
	tp, _ := s.GetTopic(id)
	if tp.Title != "T renamed" || tp.Arity != 4 {
		t.Errorf("topic not updated: %+v", tp)
	}

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestSaveTopicWithLoadError(t *testing.T) {
	s := newTestStore(t)
	id, err := s.SaveTopic(model.Topic{Source: "bad.csv", Title: "Bad", LoadError: "missing columns"}, testRecords(3, 3))
	if err != nil {
		t.Fatalf("SaveTopic: %v", err)
	}
	tp, err := s.GetTopic(id)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if tp.Usable() {
		t.Error("expected topic with load error to be unusable")
	}
	if tp.Count != 0 {
		t.Errorf("expected no questions stored, got %d", tp.Count)
	}
	qs, err := s.Questions(id)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("expected no questions, got %d", len(qs))
	}
}

func TestDeleteTopicsExcept(t *testing.T) {
	s := newTestStore(t)
	saveTestTopic(t, s, "a.csv", "A", testRecords(2, 3))
	saveTestTopic(t, s, "b.csv", "B", testRecords(2, 3))
	saveTestTopic(t, s, "c.csv", "C", testRecords(2, 3))

	removed, err := s.DeleteTopicsExcept([]string{"b.csv"})
	if err != nil {
		t.Fatalf("DeleteTopicsExcept: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	list, _ := s.ListTopics()
	if len(list) != 1 || list[0].Source != "b.csv" {
		t.Errorf("unexpected remaining topics %+v", list)
	}
	count, _ := s.QuestionCount()
	if count != 2 {
		t.Errorf("expected 2 questions left, got %d", count)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	if err := s.SetMetadata("k", "v1"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "v2"); err != nil {
		t.Fatalf("SetMetadata overwrite: %v", err)
	}
	v, _ = s.GetMetadata("k")
	if v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}

	last, err := s.LastSync()
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero last sync, got %v", last)
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.MarkSynced("/quiz", at); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	last, err = s.LastSync()
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if !last.Equal(at) {
		t.Errorf("expected %v, got %v", at, last)
	}
	dir, _ := s.GetMetadata(MetaDir)
	if dir != "/quiz" {
		t.Errorf("expected dir /quiz, got %q", dir)
	}
}
