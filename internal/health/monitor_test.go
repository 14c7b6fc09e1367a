package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
)

type scriptedChecker struct {
	results []error
	status  string
	calls   int
}

func (c *scriptedChecker) Health(ctx context.Context) (*interfaces.HealthStatus, error) {
	var err error
	if c.calls < len(c.results) {
		err = c.results[c.calls]
	}
	c.calls++
	if err != nil {
		return nil, err
	}
	status := c.status
	if status == "" {
		status = "healthy"
	}
	return &interfaces.HealthStatus{Status: status, Version: "1.2.0"}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(10 * time.Millisecond)
	return c.t
}

func TestMonitorStartsChecking(t *testing.T) {
	m := NewMonitor(&scriptedChecker{}, "http://localhost:8000")
	assert.Equal(t, interfaces.HealthChecking, m.Last().Status)
	assert.False(t, m.Online())
}

func TestCheckClassifiesResults(t *testing.T) {
	checker := &scriptedChecker{results: []error{
		nil,
		apperrors.NewNetworkError(fmt.Errorf("dial tcp: connection refused")),
		apperrors.NewHTTPError(503, "maintenance"),
	}}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(checker, "http://api", WithClock(clock.now))

	ready := m.Check(context.Background())
	assert.Equal(t, interfaces.HealthReady, ready.Status)
	assert.Equal(t, 10*time.Millisecond, ready.ResponseTime)
	assert.True(t, m.Online())

	offline := m.Check(context.Background())
	assert.Equal(t, interfaces.HealthOffline, offline.Status)
	assert.NotEmpty(t, offline.Error)

	failed := m.Check(context.Background())
	assert.Equal(t, interfaces.HealthError, failed.Status)

	history := m.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, "1.2.0", history[0].Version)
	assert.Equal(t, "connection_refused", history[1].Failure)
	assert.Equal(t, "http_503", history[2].Failure)
}

func TestUnhealthyStatusIsError(t *testing.T) {
	m := NewMonitor(&scriptedChecker{status: "degraded"}, "http://api")
	got := m.Check(context.Background())
	assert.Equal(t, interfaces.HealthError, got.Status)
	assert.Contains(t, got.Error, "degraded")
}

func TestHistoryIsBounded(t *testing.T) {
	m := NewMonitor(&scriptedChecker{}, "http://api", WithHistorySize(2))
	for i := 0; i < 5; i++ {
		m.Check(context.Background())
	}
	assert.Len(t, m.History(0), 2)
	assert.Len(t, m.History(1), 1)

	m.Reset()
	assert.Empty(t, m.History(0))
	assert.Equal(t, interfaces.HealthChecking, m.Last().Status)
}

func TestTrends(t *testing.T) {
	down := errors.New("connection refused")
	checker := &scriptedChecker{results: []error{down, down, nil, nil}}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(checker, "http://api", WithClock(clock.now))
	for i := 0; i < 4; i++ {
		m.Check(context.Background())
	}

	trends := m.Trends(time.Hour)
	assert.Equal(t, 4, trends.SampleCount)
	assert.InDelta(t, 50.0, trends.UptimePercentage, 0.001)
	assert.Equal(t, "improving", trends.AvailabilityTrend)
	assert.Equal(t, 10*time.Millisecond, trends.AverageResponseTime)

	assert.Zero(t, m.Trends(time.Nanosecond).SampleCount)
}
