package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahmed-sakil/asian-school/config"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (f *fakeSweeper) SweepOverdue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig(spec string) *config.Config {
	return &config.Config{
		School:  config.SchoolConfig{Timezone: "UTC"},
		Finance: config.FinanceConfig{OverdueCron: spec},
	}
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(testConfig("not a cron"), &fakeSweeper{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewScheduler_InvalidTimezone(t *testing.T) {
	cfg := testConfig("15 0 * * *")
	cfg.School.Timezone = "Mars/Olympus"
	_, err := NewScheduler(cfg, &fakeSweeper{}, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_RunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{n: 2}
	s, err := NewScheduler(testConfig("@every 1s"), sweeper, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	assert.Eventually(t, func() bool { return sweeper.count() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunOverdueSweep(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 15, 0, 0, time.UTC)

	sweeper := &fakeSweeper{n: 3}
	assert.Equal(t, int64(3), RunOverdueSweep(context.Background(), sweeper, now, zap.NewNop()))
	require.Len(t, sweeper.calls, 1)
	assert.True(t, sweeper.calls[0].Equal(now))

	core, logs := observer.New(zap.ErrorLevel)
	failing := &fakeSweeper{err: errors.New("db down")}
	assert.Equal(t, int64(0), RunOverdueSweep(context.Background(), failing, now, zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("逾期扫描失败").Len())
}
