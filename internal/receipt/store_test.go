package receipt

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openStore(t)

	run, err := s.BeginRun("ecell4", "4", "/usr/local/Cellar/ecell4/4", "core,core_python")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, s.RecordPhase(run.ID, "core", "configure", nil, 1500*time.Millisecond))
	require.NoError(t, s.RecordPhase(run.ID, "core", "build", nil, 2*time.Second))
	require.NoError(t, s.RecordPhase(run.ID, "core", "install", errors.New("exit status 1"), 10*time.Millisecond))

	failure := errors.New("core: install: exit status 1")
	require.NoError(t, s.FinishRun(run.ID, failure))

	latest, err := s.LatestRun("ecell4")
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, StatusFailed, latest.Status)
	assert.Equal(t, failure.Error(), latest.Error)
	assert.Equal(t, "core,core_python", latest.Targets)
	assert.False(t, latest.FinishedAt.IsZero())

	phases, err := s.Phases(run.ID)
	require.NoError(t, err)
	require.Len(t, phases, 3)
	assert.Equal(t, []string{"configure", "build", "install"}, []string{phases[0].Phase, phases[1].Phase, phases[2].Phase})
	assert.Equal(t, 0, phases[0].Seq)
	assert.Equal(t, 2, phases[2].Seq)
	assert.Equal(t, 1500*time.Millisecond, phases[0].Duration)
	assert.Equal(t, StatusFailed, phases[2].Status)
	assert.Equal(t, "exit status 1", phases[2].Error)
}

func TestLatestRunPicksNewest(t *testing.T) {
	s := openStore(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := s.BeginRun("ecell4", "4", "/p", "")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(first.ID, nil))
	second, err := s.BeginRun("ecell4", "4", "/p", "")
	require.NoError(t, err)

	latest, err := s.LatestRun("ecell4")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, StatusRunning, latest.Status)
	assert.True(t, latest.FinishedAt.IsZero())
}

func TestRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var ids []string
	for range 3 {
		run, err := s.BeginRun("ecell4", "4", "/p", "")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	_, err := s.BeginRun("other", "1", "/p", "")
	require.NoError(t, err)

	all, err := s.Runs("ecell4", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := s.Runs("ecell4", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestLatestRunNone(t *testing.T) {
	s := openStore(t)
	_, err := s.LatestRun("ecell4")
	assert.ErrorIs(t, err, ErrNoRun)
	assert.ErrorIs(t, s.FinishRun("missing", nil), ErrNoRun)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.db")
	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.BeginRun("ecell4", "4", "/p", "core")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(run.ID, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.LatestRun("ecell4")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, latest.Status)
}
