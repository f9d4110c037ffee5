package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
	"github.com/i474232898/coastal-threat-monitor/internal/observability"
)

type recordingRefresher struct {
	mu       sync.Mutex
	currents []string
	threats  []string
	err      error
}

func (r *recordingRefresher) GetCurrents(_ context.Context, stationID string, _ *coastal.Coordinates) (coastal.StationTimeSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currents = append(r.currents, stationID)
	return coastal.StationTimeSeries{}, r.err
}

func (r *recordingRefresher) GetThreatsForStation(_ context.Context, stationID string, _ *coastal.Coordinates) (coastal.ThreatAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threats = append(r.threats, stationID)
	return coastal.ThreatAssessment{}, r.err
}

func (r *recordingRefresher) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := append([]string(nil), r.currents...)
	th := append([]string(nil), r.threats...)
	sort.Strings(c)
	return c, th
}

func TestRunOnce_RefreshesEveryStation(t *testing.T) {
	r := &recordingRefresher{}
	s := New([]string{"cb0201", "cb0102"}, 5*time.Minute, r, observability.NopLogger())

	s.RunOnce(context.Background())

	currents, threats := r.snapshot()
	assert.Equal(t, []string{"cb0102", "cb0201"}, currents)
	assert.Equal(t, []string{"cb0201"}, threats)
}

func TestRunOnce_FailuresDoNotStopOtherStations(t *testing.T) {
	r := &recordingRefresher{err: errors.New("backend unavailable")}
	s := New([]string{"a", "b", "c"}, 5*time.Minute, r, observability.NopLogger())

	s.RunOnce(context.Background())

	currents, _ := r.snapshot()
	assert.Len(t, currents, 3)
}

func TestStart_NoStations(t *testing.T) {
	r := &recordingRefresher{}
	s := New(nil, 5*time.Minute, r, observability.NopLogger())

	require.NoError(t, s.Start())
	s.Stop()

	currents, threats := r.snapshot()
	assert.Empty(t, currents)
	assert.Empty(t, threats)
}

func TestStart_RunsFirstTickImmediately(t *testing.T) {
	r := &recordingRefresher{}
	s := New([]string{"cb0201"}, time.Minute, r, observability.NopLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		currents, threats := r.snapshot()
		return len(currents) == 1 && len(threats) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_KeepsSubMinuteRemainder(t *testing.T) {
	r := &recordingRefresher{}
	s := New([]string{"cb0201"}, 90*time.Second, r, observability.NopLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	jobs := s.scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.Eventually(t, func() bool {
		return time.Until(jobs[0].NextRun()) > 80*time.Second
	}, 2*time.Second, 10*time.Millisecond, "a 90s interval must not be truncated to one minute")
}
