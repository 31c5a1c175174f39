package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reps(matched ...bool) []Repetition {
	out := make([]Repetition, len(matched))
	for i, m := range matched {
		out[i] = Repetition{Matched: m}
	}
	return out
}

func TestQuantifierEvaluate(t *testing.T) {
	r24, err := Range(2, 4, Greedy)
	require.NoError(t, err)

	tests := []struct {
		name     string
		q        Quantifier
		reps     []Repetition
		wantKeep int
		wantOK   bool
	}{
		{"normal matched", Normal(), reps(true), 1, true},
		{"normal unmatched", Normal(), reps(false), 0, false},
		{"normal empty", Normal(), nil, 0, false},
		{"star empty", Star(Greedy), nil, 0, true},
		{"star drops trailing failure", Star(Greedy), reps(true, true, false), 2, true},
		{"star all failed", Star(Reluctant), reps(false), 0, true},
		{"plus empty", Plus(Greedy), nil, 0, false},
		{"plus one", Plus(Possessive), reps(true, false), 1, true},
		{"question empty", Question(Greedy), reps(false), 0, true},
		{"question capped", Question(Greedy), reps(true, true), 1, true},
		{"range below min", r24, reps(true, false), 0, false},
		{"range within", r24, reps(true, true, true), 3, true},
		{"range capped", r24, reps(true, true, true, true, true), 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, ok := tt.q.Evaluate(tt.reps)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantKeep, keep)
			}
		})
	}
}

func TestQuantifierContinue(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }

	tests := []struct {
		name string
		q    Quantifier
		ctx  ContinueContext
		want bool
	}{
		{"normal stops after one", Normal(), ContinueContext{Count: 1, LastMatched: true}, false},
		{"greedy continues", Plus(Greedy), ContinueContext{Count: 3, LastMatched: true, NextMatches: yes}, true},
		{"greedy stops on failure", Star(Greedy), ContinueContext{Count: 1, LastMatched: false}, false},
		{"reluctant below min", Plus(Reluctant), ContinueContext{Count: 0, LastMatched: true, NextMatches: yes}, true},
		{"reluctant next matches", Plus(Reluctant), ContinueContext{Count: 1, LastMatched: true, NextMatches: yes}, false},
		{"reluctant next fails", Plus(Reluctant), ContinueContext{Count: 1, LastMatched: true, NextMatches: no}, true},
		{"reluctant without next", Star(Reluctant), ContinueContext{Count: 1, LastMatched: true}, false},
		{"possessive continues", Star(Possessive), ContinueContext{Count: 5, LastMatched: true}, true},
		{"question at max", Question(Greedy), ContinueContext{Count: 1, LastMatched: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Continue(true, tt.ctx))
		})
	}
}

func TestRangeRejectsImpossibleBounds(t *testing.T) {
	for _, bounds := range [][2]int{{-1, 2}, {0, 0}, {3, 2}} {
		_, err := Range(bounds[0], bounds[1], Greedy)
		require.Error(t, err)
		var me *MatchError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, ErrCodeInvalidQuantifier, me.Code)
	}

	q, err := Range(2, -1, Reluctant)
	require.NoError(t, err)
	assert.False(t, q.Optional())
	assert.Equal(t, "[2,]?", q.String())
}

func TestQuantifierString(t *testing.T) {
	r13, _ := Range(1, 3, Possessive)
	assert.Equal(t, "", Normal().String())
	assert.Equal(t, "*", Star(Greedy).String())
	assert.Equal(t, "+?", Plus(Reluctant).String())
	assert.Equal(t, "?+", Question(Possessive).String())
	assert.Equal(t, "[1,3]+", r13.String())
}

func TestQuantifierBacktracks(t *testing.T) {
	assert.True(t, Plus(Greedy).Backtracks())
	assert.True(t, Plus(Reluctant).Backtracks())
	assert.False(t, Plus(Possessive).Backtracks())
}
