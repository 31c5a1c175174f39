package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
)

func TestOpenAppliesPragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteRun(context.Background(), createTestRun("run-1", 1)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	runs, err := s2.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMigrationsCreateIndexes(t *testing.T) {
	s := createTestStore(t)
	for _, name := range []string{"idx_rule_matches_tree_hash", "idx_spans_run_type"} {
		t.Run(name, func(t *testing.T) {
			var got string
			err := s.DB().QueryRow(`
				SELECT name FROM sqlite_master
				WHERE type = 'index' AND name = ?
			`, name).Scan(&got)
			require.NoError(t, err)
			assert.Equal(t, name, got)
		})
	}
}

func TestMigrateFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`DROP INDEX idx_spans_run_type`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("user_version", "2"))
	var n int
	require.NoError(t, s.DB().QueryRow(`
		SELECT COUNT(*) FROM sqlite_master WHERE name = 'idx_spans_run_type'
	`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	require.NoError(t, s.WriteRun(context.Background(), createTestRun("run-1", 1)))
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestWriteAndReadRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run := createTestRun("run-1", 7)
	require.NoError(t, s.WriteRun(ctx, run))
	require.NoError(t, s.WriteRun(ctx, run), "duplicate write is ignored")

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = s.ReadRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsOrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.WriteRun(ctx, createTestRun("b", 2)))
	require.NoError(t, s.WriteRun(ctx, createTestRun("a", 3)))
	require.NoError(t, s.WriteRun(ctx, createTestRun("c", 1)))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestMatchRecords(t *testing.T) {
	applies := applyTestRule(t, "Ada runs. Bob")
	recs, err := MatchRecords("run-1", applies)
	require.NoError(t, err)

	// Ada and Bob each anchor a match; only Ada is followed by a small word.
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].Seq)
	assert.Equal(t, int64(2), recs[1].Seq)
	assert.True(t, recs[0].Matched)
	assert.False(t, recs[1].Matched)
	require.NotNil(t, recs[0].Cover)
	assert.Equal(t, 0, recs[0].Cover.Begin)
	assert.Equal(t, 8, recs[0].Cover.End)

	for _, rec := range recs {
		assert.Equal(t, "run-1", rec.RunID)
		assert.Equal(t, 0, rec.Rule)
		assert.Len(t, rec.TreeHash, 64)
		assert.Contains(t, rec.Tree, `"matched":`)
	}
}

func TestSaveRunAndReadBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run := createTestRun("run-1", 1)
	recs, err := MatchRecords(run.ID, applyTestRule(t, "Ada runs. Bob"))
	require.NoError(t, err)
	created := []ir.Span{{ID: 20, Type: "Person", Begin: 0, End: 3}}
	removed := []ir.Span{{ID: 3, Type: "SW", Begin: 4, End: 8}}
	require.NoError(t, s.SaveRun(ctx, run, recs, created, removed))

	all, err := s.ReadMatches(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Equal(t, recs, all)

	matched, err := s.ReadMatches(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, recs[0].ID, matched[0].ID)

	spans, err := s.ReadSpans(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []ir.SpanRecord{
		{RunID: run.ID, Span: created[0]},
		{RunID: run.ID, Span: removed[0], Removed: true},
	}, spans)
}

func TestSaveRunRejectsForeignMatch(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	recs, err := MatchRecords("other", applyTestRule(t, "Ada runs"))
	require.NoError(t, err)
	err = s.SaveRun(ctx, createTestRun("run-1", 1), recs, nil, nil)
	require.Error(t, err)

	_, err = s.ReadRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound, "transaction rolled back")
}

func TestWriteMatchRequiresRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteMatch(context.Background(), ir.MatchRecord{
		ID: "m", RunID: "nope", Tree: "{}", TreeHash: "h",
	})
	assert.Error(t, err)
}

func TestFindMatchesByHash(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i, id := range []string{"run-1", "run-2"} {
		run := createTestRun(id, int64(i+1))
		applies := applyTestRule(t, "Ada runs")
		recs, err := MatchRecords(id, applies)
		require.NoError(t, err)
		for j := range recs {
			recs[j].ID = id + "/" + recs[j].ID
		}
		require.NoError(t, s.SaveRun(ctx, run, recs, nil, nil))
	}

	first, err := s.ReadMatches(ctx, "run-1", true)
	require.NoError(t, err)
	require.Len(t, first, 1)

	same, err := s.FindMatchesByHash(ctx, first[0].TreeHash)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, "run-1", same[0].RunID)
	assert.Equal(t, "run-2", same[1].RunID)
}

func TestWriteSpansIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", 1)))

	sp := ir.Span{ID: 5, Type: "X", Begin: 1, End: 2}
	require.NoError(t, s.WriteSpans(ctx, "run-1", []ir.Span{sp, sp}, false))

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM spans`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSpanChanges(t *testing.T) {
	a := ir.Span{ID: 1, Type: "CW", Begin: 0, End: 3}
	b := ir.Span{ID: 2, Type: "SW", Begin: 4, End: 8}
	c := ir.Span{ID: 3, Type: "Person", Begin: 0, End: 3}
	d := ir.Span{ID: 4, Type: "Pair", Begin: 0, End: 8}

	created, removed := SpanChanges([]ir.Span{a, b}, []ir.Span{c, a, d})
	assert.Equal(t, []ir.Span{d, c}, created)
	assert.Equal(t, []ir.Span{b}, removed)

	created, removed = SpanChanges([]ir.Span{a}, []ir.Span{a})
	assert.Empty(t, created)
	assert.Empty(t, removed)
}

func TestReadMatchesNullCover(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", 1)))
	require.NoError(t, s.WriteMatch(ctx, ir.MatchRecord{
		ID: "m1", RunID: "run-1", Seq: 1, Tree: "{}", TreeHash: "h",
	}))

	var begin sql.NullInt64
	require.NoError(t, s.DB().QueryRow(`SELECT cover_begin FROM rule_matches`).Scan(&begin))
	assert.False(t, begin.Valid)

	recs, err := s.ReadMatches(ctx, "run-1", false)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Cover)
}

func TestNextRunSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	seq, err := s.NextRunSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, s.WriteRun(ctx, createTestRun("a", 4)))
	seq, err = s.NextRunSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)
}
