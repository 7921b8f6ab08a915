// Package topics discovers question files in a directory and keeps the
// question bank in sync with them.
package topics

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SamVia/quizzz/internal/loader"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/store"
)

// DemoFile is written when a directory holds no question file.
const DemoFile = "Quiz_Demo.csv"

const demoCSV = `domanda,opzioneA,opzioneB,opzioneC,opzioneD,soluzione,motivazione
Quanto fa 1+1?,1,2,3,4,B,Matematica base.
Il cielo è?,Verde,Blu,Giallo,Viola,Blu,Rayleigh scattering.
`

// Entry is one question file found on disk.
type Entry struct {
	Path   string
	Source string // file name relative to the scanned directory
	Title  string
}

// Title derives a display title from a file name: extension dropped,
// underscores become spaces, words title-cased.
func Title(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Join(strings.Fields(strings.ReplaceAll(base, "_", " ")), " ")
	return cases.Title(language.Und).String(base)
}

// Discover lists the loadable question files in dir, ordered by title.
func Discover(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read topic directory: %w", err)
	}
	var entries []Entry
	for _, de := range des {
		name := de.Name()
		// Hidden files and Office lock files ("~$book.xlsx").
		if de.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !loader.Supported(name) {
			continue
		}
		entries = append(entries, Entry{
			Path:   filepath.Join(dir, name),
			Source: name,
			Title:  Title(name),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Title != entries[j].Title {
			return entries[i].Title < entries[j].Title
		}
		return entries[i].Source < entries[j].Source
	})
	return entries, nil
}

// EnsureDemo writes DemoFile into dir when dir holds no question file.
// It reports whether the file was created.
func EnsureDemo(dir string) (bool, error) {
	entries, err := Discover(dir)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.WriteFile(filepath.Join(dir, DemoFile), []byte(demoCSV), 0o644); err != nil {
		return false, fmt.Errorf("write demo file: %w", err)
	}
	slog.Info("no question files found, wrote demo", "dir", dir, "file", DemoFile)
	return true, nil
}

// Report summarises one Sync run.
type Report struct {
	Imported  int
	Unchanged int
	Failed    int
	Removed   int
}

// Sync imports every question file of dir into db. Files whose content hash
// matches the stored one are skipped, changed files replace their topic's
// questions, and topics whose file disappeared are removed. Files that fail
// validation are kept as topics carrying their load error.
func Sync(db *store.Store, dir string) (Report, error) {
	var rep Report
	if _, err := EnsureDemo(dir); err != nil {
		return rep, err
	}
	entries, err := Discover(dir)
	if err != nil {
		return rep, err
	}

	sources := make([]string, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, e.Source)
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return rep, fmt.Errorf("read %s: %w", e.Path, err)
		}

		hash := sha256sum(data)
		stored, err := db.TopicBySource(e.Source)
		if err != nil {
			return rep, fmt.Errorf("check import status for %s: %w", e.Source, err)
		}
		if stored != nil && stored.Hash == hash {
			slog.Debug("topic file unchanged, skipping", "source", e.Source)
			rep.Unchanged++
			continue
		}

		t := model.Topic{Source: e.Source, Title: e.Title, Hash: hash, ImportedAt: time.Now()}
		recs, err := loader.Parse(e.Source, bytes.NewReader(data))
		if err != nil {
			slog.Warn("topic file failed validation", "source", e.Source, "error", err)
			t.LoadError = err.Error()
			rep.Failed++
		} else {
			rep.Imported++
		}
		if _, err := db.SaveTopic(t, recs); err != nil {
			return rep, fmt.Errorf("save topic %s: %w", e.Source, err)
		}
		if t.LoadError == "" {
			slog.Info("imported topic", "source", e.Source, "count", len(recs))
		}
	}

	removed, err := db.DeleteTopicsExcept(sources)
	if err != nil {
		return rep, fmt.Errorf("prune topics: %w", err)
	}
	rep.Removed = int(removed)
	if err := db.MarkSynced(dir, time.Now()); err != nil {
		return rep, fmt.Errorf("record sync: %w", err)
	}
	return rep, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
