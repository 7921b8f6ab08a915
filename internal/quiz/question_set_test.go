package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamVia/quizzz/internal/model"
)

func TestNewQuestionSet_Validation(t *testing.T) {
	mixed := testRecords(3, 4)
	mixed[1].Options = mixed[1].Options[:3]

	badLetter := testRecords(2, 3)
	badLetter[0].Solution = "d"

	tests := []struct {
		name    string
		records []model.QuestionRecord
		wantErr bool
	}{
		{"three options", testRecords(5, 3), false},
		{"four options", testRecords(5, 4), false},
		{"empty", nil, true},
		{"two options", testRecords(2, 2), true},
		{"mixed arity", mixed, true},
		{"letter beyond arity", badLetter, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewQuestionSet("t", tt.records, testRand())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.records), set.Len())
			assert.Equal(t, len(tt.records[0].Options), set.Arity())
		})
	}
}

func TestNewQuestionSet_IsPermutation(t *testing.T) {
	recs := testRecords(20, 4)
	set, err := NewQuestionSet("t", recs, testRand())
	require.NoError(t, err)

	seen := make(map[int]bool)
	for i := range set.Len() {
		seen[set.At(i).Position] = true
	}
	assert.Len(t, seen, 20)

	// The input slice is not reordered.
	for i, r := range recs {
		assert.Equal(t, i, r.Position)
	}
}

func TestQuestionSet_Reshuffled(t *testing.T) {
	set, err := NewQuestionSet("t", testRecords(10, 3), testRand())
	require.NoError(t, err)

	again := set.Reshuffled(testRand())
	assert.Equal(t, set.Len(), again.Len())
	assert.Equal(t, set.Topic(), again.Topic())

	var a, b []int
	for i := range set.Len() {
		a = append(a, set.At(i).Position)
		b = append(b, again.At(i).Position)
	}
	assert.ElementsMatch(t, a, b)
}

func TestCorrectAnswerResolution(t *testing.T) {
	opts := []string{"Red", "Blue", "Green", "Yellow"}
	tests := []struct {
		name     string
		options  []string
		solution string
		want     string
	}{
		{"letter key", opts, "B", "Blue"},
		{"lowercase letter with spaces", opts, " b ", "Blue"},
		{"literal text", opts, "Blue", "Blue"},
		{"literal text trimmed", opts, "  Blue ", "Blue"},
		{"letter D with four options", opts, "D", "Yellow"},
		{"letter D with three options is literal", opts[:3], "D", "D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := model.QuestionRecord{Options: tt.options, Solution: tt.solution}
			assert.Equal(t, tt.want, rec.CorrectAnswer())
		})
	}
}
