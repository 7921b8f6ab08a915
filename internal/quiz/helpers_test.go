package quiz

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SamVia/quizzz/internal/model"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func testRecords(n, arity int) []model.QuestionRecord {
	recs := make([]model.QuestionRecord, n)
	for i := range n {
		opts := make([]string, arity)
		for j := range arity {
			opts[j] = fmt.Sprintf("q%d-opt%s", i, model.OptionLetters[j])
		}
		recs[i] = model.QuestionRecord{
			Position:  i,
			Prompt:    fmt.Sprintf("Question %d?", i),
			Options:   opts,
			Solution:  "B",
			Rationale: fmt.Sprintf("Because %d.", i),
		}
	}
	return recs
}

func newTestController(t *testing.T, recs []model.QuestionRecord, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{
		WithRand(testRand()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c := NewController(opts...)
	require.NoError(t, c.LoadTopic("Test Topic", recs))
	require.NoError(t, c.EnsureQuestion())
	return c
}

// answer submits a correct or wrong choice for the current question.
func answer(t *testing.T, c *Controller, correct bool) Outcome {
	t.Helper()
	rec, serial, ok := c.Current()
	require.True(t, ok, "no current question")
	choice := rec.CorrectAnswer()
	if !correct {
		for _, o := range rec.Options {
			if o != choice {
				choice = o
				break
			}
		}
	}
	out, err := c.Submit(serial, choice)
	require.NoError(t, err)
	require.True(t, out.Fresh)
	require.Equal(t, correct, out.Correct)
	return out
}

func next(t *testing.T, c *Controller) {
	t.Helper()
	_, serial, ok := c.Current()
	require.True(t, ok, "no current question")
	require.NoError(t, c.Next(serial))
}

func skip(t *testing.T, c *Controller) {
	t.Helper()
	_, serial, ok := c.Current()
	require.True(t, ok, "no current question")
	require.NoError(t, c.Skip(serial))
}
