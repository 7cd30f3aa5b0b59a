package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/dmrb/internal/config"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/source"
	"github.com/stwalsh4118/dmrb/internal/source/sourcetest"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()

	data, err := sourcetest.Workbook(sourcetest.Sheet{
		Name:   "Unit",
		Header: sourcetest.UnitHeader,
		Rows: [][]interface{}{
			{"5", "1", "101", "2025-01-01", "", "In Progress", ""},
			{"5", "1", "102", "", "", "", ""},
		},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "board.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testConfig(path string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", Env: "test"},
		Source: config.SourceConfig{
			File:      path,
			UnitSheet: "Unit",
			TaskSheet: "Task",
			Timeout:   5 * time.Second,
			CacheTTL:  time.Minute,
		},
		Rules: config.RulesConfig{
			ReadyStatuses:     []string{"ready"},
			InTurnStatuses:    []string{"in progress"},
			ThresholdFresh:    8,
			ThresholdIdle:     15,
			ThresholdAging:    25,
			ThresholdCritical: 30,
		},
		Dashboard: config.DashboardConfig{Timezone: "UTC", MovingWindowDays: 3},
		CORS:      config.CORSConfig{Origins: []string{"*"}},
	}
}

func TestNew_FileSource(t *testing.T) {
	cfg := testConfig(writeWorkbook(t))

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Scheduler)

	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	result, err := a.Service.AllUnits(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, "101", result.Units[0].UnitID)
	require.NotNil(t, result.Units[0].DaysVacant)
	assert.Equal(t, 9, *result.Units[0].DaysVacant)
}

func TestNew_WithSchedule(t *testing.T) {
	cfg := testConfig(writeWorkbook(t))
	cfg.Refresh.Schedule = "*/5 * * * *"

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Scheduler)
	assert.NoError(t, a.Scheduler.RunOnce(context.Background()))
}

func TestNew_InvalidRules(t *testing.T) {
	cfg := testConfig("board.xlsx")
	cfg.Rules.ThresholdIdle = 40

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNewFetcher(t *testing.T) {
	_, isHTTP := newFetcher(config.SourceConfig{URL: "https://example.com/export.xlsx", File: "board.xlsx"}).(*source.HTTPFetcher)
	assert.True(t, isHTTP)

	_, isFile := newFetcher(config.SourceConfig{File: "board.xlsx"}).(*source.FileFetcher)
	assert.True(t, isFile)
}

func TestNewStore(t *testing.T) {
	a := &App{}
	cfg := testConfig("board.xlsx")

	_, isMemory := a.newStore(cfg, logger.Nop()).(*source.MemoryStore)
	assert.True(t, isMemory)
	assert.Empty(t, a.closers)

	cfg.Redis.Addr = "localhost:6379"
	_, isRedis := a.newStore(cfg, logger.Nop()).(*source.RedisStore)
	assert.True(t, isRedis)
	assert.Len(t, a.closers, 1)
	assert.NoError(t, a.Close())
}
