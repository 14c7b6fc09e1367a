// Package health tracks the availability of the storytelling backend. The
// header polls it to show an online/offline indicator, and the history feeds
// the diagnostics panel.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

// DefaultCheckTimeout bounds a single probe
const DefaultCheckTimeout = 5 * time.Second

// DefaultPollInterval is how often the header refreshes the indicator
const DefaultPollInterval = 30 * time.Second

// Checker probes the backend; the protocol client satisfies it
type Checker interface {
	Health(ctx context.Context) (*interfaces.HealthStatus, error)
}

// Snapshot captures one probe
type Snapshot struct {
	Timestamp    time.Time     `json:"timestamp"`
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"responseTime"`
	Version      string        `json:"version,omitempty"`
	Failure      string        `json:"failure,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Trends summarizes recent probes
type Trends struct {
	AnalysisPeriod      time.Duration `json:"analysisPeriod"`
	SampleCount         int           `json:"sampleCount"`
	UptimePercentage    float64       `json:"uptimePercentage"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	AvailabilityTrend   string        `json:"availabilityTrend,omitempty"` // "improving", "degrading", "stable"
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithTimeout sets the per-probe timeout
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithHistorySize bounds the number of snapshots kept
func WithHistorySize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

// Monitor probes the backend and keeps a bounded history
type Monitor struct {
	checker    Checker
	apiURL     string
	timeout    time.Duration
	maxHistory int
	now        func() time.Time
	logger     *logging.Logger

	mu      sync.RWMutex
	last    interfaces.BackendHealth
	history []Snapshot
}

// NewMonitor creates a monitor for the backend at apiURL
func NewMonitor(checker Checker, apiURL string, opts ...Option) *Monitor {
	m := &Monitor{
		checker:    checker,
		apiURL:     apiURL,
		timeout:    DefaultCheckTimeout,
		maxHistory: 100,
		now:        time.Now,
		logger:     logging.GetHealthLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.last = interfaces.BackendHealth{APIURL: apiURL, Status: interfaces.HealthChecking}
	return m
}

// Check probes the backend once and records the result
func (m *Monitor) Check(ctx context.Context) interfaces.BackendHealth {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := m.now()
	status, err := m.checker.Health(ctx)
	elapsed := m.now().Sub(start)

	snapshot := Snapshot{Timestamp: m.now(), ResponseTime: elapsed}
	switch {
	case err != nil:
		snapshot.Status = statusForError(err)
		snapshot.Failure = classifyFailure(err)
		snapshot.Error = err.Error()
	case !healthyStatus(status.Status):
		snapshot.Status = interfaces.HealthError
		snapshot.Version = status.Version
		snapshot.Error = fmt.Sprintf("backend reports %q", status.Status)
	default:
		snapshot.Status = interfaces.HealthReady
		snapshot.Version = status.Version
	}

	result := interfaces.BackendHealth{
		APIURL:       m.apiURL,
		Status:       snapshot.Status,
		LastChecked:  snapshot.Timestamp,
		ResponseTime: elapsed,
		Error:        snapshot.Error,
	}

	m.mu.Lock()
	m.last = result
	m.history = append(m.history, snapshot)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
	m.mu.Unlock()

	m.logger.LogHealthCheck(m.apiURL, result.Status, elapsed, err)
	return result
}

// Last returns the most recent result, "checking" before the first probe
func (m *Monitor) Last() interfaces.BackendHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Online reports whether the last probe succeeded
func (m *Monitor) Online() bool {
	return m.Last().Status == interfaces.HealthReady
}

// History returns up to limit of the most recent snapshots, oldest first
func (m *Monitor) History(limit int) []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if limit > 0 && len(m.history) > limit {
		start = len(m.history) - limit
	}
	return append([]Snapshot(nil), m.history[start:]...)
}

// Trends analyzes snapshots taken within period
func (m *Monitor) Trends(period time.Duration) Trends {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-period)
	var recent []Snapshot
	for _, s := range m.history {
		if s.Timestamp.After(cutoff) {
			recent = append(recent, s)
		}
	}

	trends := Trends{AnalysisPeriod: period, SampleCount: len(recent)}
	if len(recent) == 0 {
		return trends
	}

	var total time.Duration
	for _, s := range recent {
		total += s.ResponseTime
	}
	trends.UptimePercentage = uptime(recent)
	trends.AverageResponseTime = total / time.Duration(len(recent))

	if len(recent) >= 2 {
		first := uptime(recent[:len(recent)/2])
		second := uptime(recent[len(recent)/2:])
		switch {
		case second > first:
			trends.AvailabilityTrend = "improving"
		case second < first:
			trends.AvailabilityTrend = "degrading"
		default:
			trends.AvailabilityTrend = "stable"
		}
	}
	return trends
}

// Reset forgets the history
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.last = interfaces.BackendHealth{APIURL: m.apiURL, Status: interfaces.HealthChecking}
}

func uptime(snapshots []Snapshot) float64 {
	ready := 0
	for _, s := range snapshots {
		if s.Status == interfaces.HealthReady {
			ready++
		}
	}
	return float64(ready) / float64(len(snapshots)) * 100
}

func healthyStatus(status string) bool {
	switch strings.ToLower(status) {
	case "healthy", "ok", "ready", "up":
		return true
	}
	return false
}

// statusForError separates an unreachable backend from one that answered
// with an error
func statusForError(err error) string {
	switch apperrors.ErrorCode(err) {
	case apperrors.CodeNetwork, apperrors.CodeTimeout, apperrors.CodeRequestFailed:
		return interfaces.HealthOffline
	}
	if apperrors.Is(err, apperrors.CategoryNetwork) {
		return interfaces.HealthOffline
	}
	return interfaces.HealthError
}

// classifyFailure names the kind of failure for diagnostics
func classifyFailure(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "no such host"):
		return "dns_failure"
	case strings.Contains(msg, "network is unreachable"):
		return "network_unreachable"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	}
	if code := apperrors.ErrorCode(err); strings.HasPrefix(code, "HTTP_") {
		return strings.ToLower(code)
	}
	return "unknown"
}
