package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleResult() *model.Result {
	return &model.Result{
		AsOf: "2024-06-30",
		Items: []model.ItemResult{{
			ID:       "B001",
			Decision: model.DecisionInvest,
			Metrics: model.Metrics{
				"contribution_margin_pct": {Value: model.Of(0.35)},
				"tacos":                   {Value: model.Missing(), MissingInputs: []string{"ad_spend"}},
			},
		}},
		Summary: model.Summary{
			Decisions:   map[model.Decision]int{model.DecisionInvest: 1},
			WastedSpend: model.Of(0),
		},
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "2024-06-30")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", got.AsOf)
	assert.Nil(t, got.Result)

	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunStatusComplete, sampleResult(), ""))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Items, 1)
	v, ok := got.Result.Items[0].Metrics.Get("contribution_margin_pct").Float()
	require.True(t, ok)
	assert.Equal(t, 0.35, v)
	assert.True(t, got.Result.Items[0].Metrics.Get("tacos").IsMissing())
}

func TestSQLite_FinishRunFailed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "2024-06-30")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunStatusFailed, nil, "config: invalid model"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "config: invalid model", got.Error)
	assert.Nil(t, got.Result)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.FinishRun(ctx, "missing", model.RunStatusComplete, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListAndCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx, "2024-06-30")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	require.NoError(t, st.FinishRun(ctx, ids[0], model.RunStatusComplete, sampleResult(), ""))
	require.NoError(t, st.FinishRun(ctx, ids[1], model.RunStatusPartial, sampleResult(), "pipeline: run timed out"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, r := range all {
		assert.Nil(t, r.Result)
	}

	partial, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusPartial})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, ids[1], partial[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	counts, err := st.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.RunStatus]int{
		model.RunStatusComplete: 1,
		model.RunStatusPartial:  1,
		model.RunStatusRunning:  1,
	}, counts)
}
