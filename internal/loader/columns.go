package loader

import "strings"

// Canonical column names.
const (
	colPrompt    = "prompt"
	colOptionA   = "optionA"
	colOptionB   = "optionB"
	colOptionC   = "optionC"
	colOptionD   = "optionD"
	colSolution  = "solution"
	colRationale = "rationale"
)

var requiredColumns = []string{colPrompt, colOptionA, colOptionB, colOptionC, colSolution}

var optionColumns = []string{colOptionA, colOptionB, colOptionC, colOptionD}

// headerAliases maps normalized header text to canonical column names.
// The Italian names are the ones used by the original data files.
var headerAliases = map[string]string{
	"prompt":      colPrompt,
	"question":    colPrompt,
	"domanda":     colPrompt,
	"optiona":     colOptionA,
	"opzionea":    colOptionA,
	"optionb":     colOptionB,
	"opzioneb":    colOptionB,
	"optionc":     colOptionC,
	"opzionec":    colOptionC,
	"optiond":     colOptionD,
	"opzioned":    colOptionD,
	"solution":    colSolution,
	"answer":      colSolution,
	"soluzione":   colSolution,
	"risposta":    colSolution,
	"rationale":   colRationale,
	"explanation": colRationale,
	"motivazione": colRationale,
}

var headerReplacer = strings.NewReplacer(" ", "", "_", "", "-", "", "\ufeff", "")

// mapHeader returns the column index of every recognised canonical column.
// The first occurrence of a column wins.
func mapHeader(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		key := headerReplacer.Replace(strings.ToLower(strings.TrimSpace(h)))
		col, ok := headerAliases[key]
		if !ok {
			continue
		}
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	return idx
}

func missingColumns(idx map[string]int) []string {
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
