package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

var _ stream.Sequencer = (*SpanIDs)(nil)

func TestSpanIDs(t *testing.T) {
	tests := []struct {
		name  string
		start int64
		want  []int64
	}{
		{"from one", 1, []int64{1, 2, 3}},
		{"from hundred", 100, []int64{100, 101, 102}},
		{"below one", -5, []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := NewSpanIDs(tt.start)
			var got []int64
			for range tt.want {
				got = append(got, ids.Next())
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, int64(len(tt.want)), ids.Issued())
		})
	}
}

func TestSpanIDsConcurrentUnique(t *testing.T) {
	ids := NewSpanIDs(1)
	const workers, calls = 50, 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				id := ids.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), ids.Issued())
	assert.True(t, seen[1])
	assert.True(t, seen[workers*calls])
}

func TestSpanIDsSeedIdentically(t *testing.T) {
	ts := ir.NewTypeSystem()
	first, err := stream.Seed("Peter left.", ts, stream.WithSequencer(NewSpanIDs(1)))
	require.NoError(t, err)
	second, err := stream.Seed("Peter left.", ts, stream.WithSequencer(NewSpanIDs(1)))
	require.NoError(t, err)
	assert.Equal(t, first.Spans(), second.Spans())
}
