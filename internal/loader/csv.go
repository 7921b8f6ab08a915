package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/SamVia/quizzz/internal/model"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters are the separators sniffed from the header line, in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

// ParseCSV reads a delimited text file. The delimiter is detected from the
// header line and input that is not valid UTF-8 is decoded as Windows-1252.
func ParseCSV(source string, r io.Reader) ([]model.QuestionRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &SchemaError{Source: source, Reason: err.Error()}
	}
	return build(source, rows)
}

func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	return out, err
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := delimiters[0], 0
	inQuote := false
	counts := make(map[rune]int, len(delimiters))
	for _, c := range string(line) {
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			counts[c]++
		}
	}
	for _, d := range delimiters {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}
