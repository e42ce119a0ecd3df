package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/Newsy/internal/batch"
	"github.com/LJTian/Newsy/internal/collector"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchRunKeepsCountsNotTitles(t *testing.T) {
	rep := &batch.Report{
		Sources: []collector.ScrapeResult{
			{SourceID: "ansa", Source: "ANSA", Titles: []string{"a headline", "another headline"}},
			{SourceID: "reuters", Source: "Reuters", Titles: []string{}, Error: "unexpected status 403"},
		},
		TotalNews:         2,
		SuccessfulSources: 1,
		FailedSources:     []string{"Reuters: unexpected status 403"},
		Locale:            "it",
		StartedAt:         time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		DurationMs:        1200,
	}

	run, err := newBatchRun(rep)
	require.NoError(t, err)

	assert.Equal(t, 2, run.SourceCount)
	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 2, run.TotalTitles)
	assert.Equal(t, int64(1200), run.DurationMs)

	var failed []string
	require.NoError(t, json.Unmarshal(run.FailedSources, &failed))
	assert.Equal(t, rep.FailedSources, failed)

	require.Len(t, run.Sources, 2)
	assert.Equal(t, 2, run.Sources[0].TitleCount)
	assert.Equal(t, "unexpected status 403", run.Sources[1].Error)

	encoded, err := json.Marshal(run)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "another headline")
}

func TestTruncateRunesDB(t *testing.T) {
	assert.Equal(t, "", truncateRunesDB("abc", 0))
	assert.Equal(t, "äöü", truncateRunesDB(" äöüß ", 3))
	assert.Equal(t, "short", truncateRunesDB("short", 10))
	assert.Len(t, []rune(truncateRunesDB(strings.Repeat("é", 700), errorMaxRunes)), errorMaxRunes)
}

func TestToValidUTF8(t *testing.T) {
	assert.Equal(t, "a�b", toValidUTF8("a\xffb"))
}

func TestParseHealth(t *testing.T) {
	h := parseHealth(map[string]string{
		"ok":         "7",
		"fail":       "2",
		"last_error": "timeout",
		"last_at":    "2024-03-15T10:30:00Z",
		"last_count": "12",
	})
	assert.Equal(t, int64(7), h.OK)
	assert.Equal(t, int64(2), h.Fail)
	assert.Equal(t, "timeout", h.LastError)
	assert.Equal(t, 12, h.LastCount)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), h.LastAt)

	assert.Equal(t, SourceHealth{}, parseHealth(map[string]string{}))
}

func TestDisabledStoreIsNoop(t *testing.T) {
	s, err := NewStore("", "", zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, s.HistoryEnabled())
	assert.False(t, s.Enabled())
	assert.NoError(t, s.RecordBatch(ctx, &batch.Report{}))
	assert.Empty(t, s.Health(ctx, []string{"ansa"}))

	_, err = s.ListRuns(ctx, 5)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRedisOnlyStoreAcceptsBatches(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	s := &Store{Redis: rdb, log: zerolog.Nop()}

	assert.True(t, s.Enabled())
	assert.False(t, s.HistoryEnabled())

	var _ batch.Recorder = s
	assert.True(t, s.cachesRuns(defaultRunsCap))
	assert.False(t, s.cachesRuns(5))
	assert.False(t, (&Store{}).cachesRuns(defaultRunsCap))
	_, err := s.ListRuns(context.Background(), 5)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRunsLimit(t *testing.T) {
	assert.Equal(t, defaultRunsCap, runsLimit(0))
	assert.Equal(t, defaultRunsCap, runsLimit(-3))
	assert.Equal(t, defaultRunsCap, runsLimit(500))
	assert.Equal(t, 5, runsLimit(5))
}
