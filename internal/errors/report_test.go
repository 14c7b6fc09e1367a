package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/telemetry"
)

func TestReporterQueuesRecordsOutsideDevelopment(t *testing.T) {
	sink := telemetry.NewMemorySink(0)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Reporter{Sink: sink, UserAgent: "storyconsole/test", Now: func() time.Time { return fixed }}
	r.SetRoute("/reader")

	rec := r.LogError(NewHTTPError(500, "boom"), "reader.generate")

	recs := sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, rec, recs[0])
	assert.Equal(t, "/reader", rec.URL)
	assert.Equal(t, "storyconsole/test", rec.UserAgent)
	assert.Equal(t, fixed, rec.Timestamp)
	assert.Equal(t, "server_error", rec.Category)
	assert.Equal(t, "reader.generate", rec.Context)
	assert.NotEmpty(t, rec.Stack)
}

func TestReporterLogsInDevelopment(t *testing.T) {
	sink := telemetry.NewMemorySink(0)
	r := &Reporter{Development: true, Sink: sink}

	rec := r.LogError(fmt.Errorf("boom"), "boundary")
	assert.Equal(t, "boom", rec.Message)
	assert.Empty(t, sink.Records())
}

func TestReporterUsesPanicStack(t *testing.T) {
	sink := telemetry.NewMemorySink(0)
	r := &Reporter{Sink: sink}
	perr := &PanicError{Value: "bad", Stack: []string{"view.go:1 render"}}

	rec := r.LogError(fmt.Errorf("render: %w", perr), "boundary")
	assert.Equal(t, []string{"view.go:1 render"}, rec.Stack)
}

func TestDefaultUserAgent(t *testing.T) {
	assert.Contains(t, DefaultUserAgent("1.2.3"), "storyconsole/1.2.3")
	assert.Contains(t, DefaultUserAgent(""), "storyconsole/dev")
}
