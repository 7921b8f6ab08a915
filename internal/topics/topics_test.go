package topics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SamVia/quizzz/internal/store"
)

const validCSV = "prompt,optionA,optionB,optionC,solution\nQ1,a,b,c,A\nQ2,a,b,c,B\n"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"storia_romana.csv", "Storia Romana"},
		{"Quiz_Demo.csv", "Quiz Demo"},
		{"diritto__privato_.xlsx", "Diritto Privato"},
		{"GEOGRAFIA.csv", "Geografia"},
		{"/data/quiz/chimica.csv", "Chimica"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.name); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zoologia.csv", validCSV)
	writeFile(t, dir, "algebra.xlsx", "")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, ".hidden.csv", validCSV)
	writeFile(t, dir, "~$algebra.xlsx", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Title != "Algebra" || entries[1].Title != "Zoologia" {
		t.Errorf("unexpected order %+v", entries)
	}
	if entries[1].Path != filepath.Join(dir, "zoologia.csv") {
		t.Errorf("unexpected path %q", entries[1].Path)
	}
}

func TestEnsureDemo(t *testing.T) {
	dir := t.TempDir()
	created, err := EnsureDemo(dir)
	if err != nil {
		t.Fatalf("EnsureDemo: %v", err)
	}
	if !created {
		t.Fatal("expected demo file to be created")
	}
	if _, err := os.Stat(filepath.Join(dir, DemoFile)); err != nil {
		t.Fatalf("demo file missing: %v", err)
	}

	created, err = EnsureDemo(dir)
	if err != nil {
		t.Fatalf("EnsureDemo second call: %v", err)
	}
	if created {
		t.Error("expected no second demo file")
	}
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	db := newTestStore(t)
	writeFile(t, dir, "storia_romana.csv", validCSV)
	writeFile(t, dir, "broken.csv", "prompt,optionA\nQ,a\n")

	rep, err := Sync(db, dir)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if rep.Imported != 1 || rep.Failed != 1 {
		t.Errorf("unexpected first report %+v", rep)
	}

	list, err := db.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(list))
	}
	// Ordered by title: Broken, Storia Romana.
	if list[0].LoadError == "" || !strings.Contains(list[0].LoadError, "missing columns") {
		t.Errorf("expected load error on broken topic, got %q", list[0].LoadError)
	}
	if list[1].Title != "Storia Romana" || list[1].Count != 2 || !list[1].Usable() {
		t.Errorf("unexpected topic %+v", list[1])
	}
	if _, err := os.Stat(filepath.Join(dir, DemoFile)); err == nil {
		t.Error("demo file should not be written when topics exist")
	}

	// Unchanged files are skipped.
	rep, err = Sync(db, dir)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if rep.Unchanged != 2 || rep.Imported != 0 {
		t.Errorf("unexpected second report %+v", rep)
	}

	// A changed file replaces its questions; a removed file drops its topic.
	writeFile(t, dir, "storia_romana.csv", validCSV+"Q3,a,b,c,C\n")
	if err := os.Remove(filepath.Join(dir, "broken.csv")); err != nil {
		t.Fatal(err)
	}
	rep, err = Sync(db, dir)
	if err != nil {
		t.Fatalf("third Sync: %v", err)
	}
	if rep.Imported != 1 || rep.Removed != 1 {
		t.Errorf("unexpected third report %+v", rep)
	}
	list, _ = db.ListTopics()
	if len(list) != 1 || list[0].Count != 3 {
		t.Fatalf("expected one topic with 3 questions, got %+v", list)
	}
	qs, err := db.Questions(list[0].ID)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(qs) != 3 {
		t.Errorf("expected 3 questions, got %d", len(qs))
	}

	last, err := db.LastSync()
	if err != nil || last.IsZero() {
		t.Errorf("expected last sync recorded, got %v, %v", last, err)
	}
}

func TestSyncWritesDemo(t *testing.T) {
	dir := t.TempDir()
	db := newTestStore(t)
	rep, err := Sync(db, dir)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if rep.Imported != 1 {
		t.Fatalf("expected demo import, got %+v", rep)
	}
	list, _ := db.ListTopics()
	if len(list) != 1 || list[0].Title != "Quiz Demo" {
		t.Fatalf("unexpected topics %+v", list)
	}
	if list[0].Arity != 4 || list[0].Count != 2 {
		t.Errorf("unexpected demo topic %+v", list[0])
	}
}
