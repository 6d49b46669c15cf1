package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastebank-backend/internal/config"
	"wastebank-backend/internal/jobs"
	"wastebank-backend/internal/repository/memory"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("database:\n  driver: memory\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n"))
	require.NoError(t, err)
	return cfg
}

func TestNewScheduler(t *testing.T) {
	cfg := newConfig(t)
	s, err := NewScheduler(jobs.NewJobRunner(memory.NewStore(), nil, nil, cfg))
	require.NoError(t, err)
	assert.Equal(t, 3, s.EntryCount())

	s.Start()
	s.Stop()
}

func TestNewScheduler_Disabled(t *testing.T) {
	cfg := newConfig(t)
	cfg.Scheduler.ReconcileLedger = "-"
	s, err := NewScheduler(jobs.NewJobRunner(memory.NewStore(), nil, nil, cfg))
	require.NoError(t, err)
	assert.Equal(t, 2, s.EntryCount())
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := newConfig(t)
	cfg.Scheduler.CheckHealth = "every now and then"
	_, err := NewScheduler(jobs.NewJobRunner(memory.NewStore(), nil, nil, cfg))
	assert.Error(t, err)
}
