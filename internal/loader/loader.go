// Package loader reads question files (CSV or XLSX) into validated
// question records.
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/SamVia/quizzz/internal/model"
)

// Extensions lists the file extensions Load understands.
var Extensions = []string{".csv", ".xlsx"}

// Supported reports whether name has a loadable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads the question file at path, dispatching on its extension.
func Load(path string) ([]model.QuestionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening question file: %w", err)
	}
	defer f.Close()

	return Parse(filepath.Base(path), f)
}

// Parse reads question data from r, choosing the format from the extension
// of name.
func Parse(name string, r io.Reader) ([]model.QuestionRecord, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ParseCSV(name, r)
	case ".xlsx":
		return ParseXLSX(name, r)
	default:
		return nil, fmt.Errorf("%s: unsupported file type", name)
	}
}

// nullMarkers are cell values spreadsheet exports use for missing data.
var nullMarkers = map[string]bool{"nan": true, "NaN": true, "NAN": true, "null": true, "NULL": true}

func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if nullMarkers[s] {
		return ""
	}
	return s
}

// build validates the header and data rows of a table and converts them to
// question records. rows[0] is the header.
func build(source string, rows [][]string) ([]model.QuestionRecord, error) {
	if len(rows) == 0 {
		return nil, &SchemaError{Source: source, Reason: "file is empty"}
	}
	idx := mapHeader(rows[0])
	if missing := missingColumns(idx); len(missing) > 0 {
		return nil, &SchemaError{Source: source, Missing: missing}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return cleanCell(row[i])
	}

	type pending struct {
		line int
		rec  model.QuestionRecord
		d    string
	}
	var kept []pending
	hasD := false
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		prompt := cell(row, colPrompt)
		if prompt == "" {
			slog.Warn("skipping row without a question", "source", source, "row", line)
			continue
		}
		p := pending{
			line: line,
			rec: model.QuestionRecord{
				Position:  i,
				Prompt:    prompt,
				Options:   []string{cell(row, colOptionA), cell(row, colOptionB), cell(row, colOptionC)},
				Solution:  cell(row, colSolution),
				Rationale: cell(row, colRationale),
			},
			d: cell(row, colOptionD),
		}
		if p.d != "" {
			hasD = true
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return nil, &SchemaError{Source: source, Reason: "no questions"}
	}

	arity := 3
	if hasD {
		arity = 4
	}
	out := make([]model.QuestionRecord, 0, len(kept))
	for _, p := range kept {
		rec := p.rec
		if arity == 4 {
			if p.d == "" {
				return nil, &SchemaError{Source: source, Row: p.line, Reason: "missing " + colOptionD + " in a four-option file"}
			}
			rec.Options = append(rec.Options, p.d)
		}
		if err := checkRecord(source, p.line, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkRecord(source string, line int, rec model.QuestionRecord) error {
	for i, opt := range rec.Options {
		if opt == "" {
			return &SchemaError{Source: source, Row: line, Reason: "empty " + optionColumns[i]}
		}
	}
	if rec.Solution == "" {
		return &SchemaError{Source: source, Row: line, Reason: "empty solution"}
	}
	if slot := model.LetterSlot(rec.Solution); slot >= 0 {
		if slot >= len(rec.Options) {
			return &AmbiguousSolutionError{Source: source, Row: line, Solution: rec.Solution, Arity: len(rec.Options)}
		}
		return nil
	}
	for _, opt := range rec.Options {
		if opt == rec.Solution {
			return nil
		}
	}
	return &SchemaError{Source: source, Row: line, Reason: fmt.Sprintf("solution %q matches no option", rec.Solution)}
}

func blank(row []string) bool {
	for _, c := range row {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}
