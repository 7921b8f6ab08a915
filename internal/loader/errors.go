package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is the root of every validation failure; check with errors.Is.
var ErrSchema = errors.New("invalid question file")

// SchemaError reports a file whose columns or rows do not form a valid
// question set.
type SchemaError struct {
	Source  string
	Missing []string // required columns absent from the header
	Row     int      // 1-based line of the offending row, 0 for file-level problems
	Reason  string
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Source)
	if len(e.Missing) > 0 {
		sb.WriteString(": missing columns: " + strings.Join(e.Missing, ", "))
		return sb.String()
	}
	if e.Row > 0 {
		fmt.Fprintf(&sb, ": row %d", e.Row)
	}
	sb.WriteString(": " + e.Reason)
	return sb.String()
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// AmbiguousSolutionError reports a letter solution that names an option
// slot the row does not have.
type AmbiguousSolutionError struct {
	Source   string
	Row      int
	Solution string
	Arity    int
}

func (e *AmbiguousSolutionError) Error() string {
	return fmt.Sprintf("%s: row %d: solution %q references a missing option (questions have %d options)",
		e.Source, e.Row, e.Solution, e.Arity)
}

func (e *AmbiguousSolutionError) Unwrap() error { return ErrSchema }
