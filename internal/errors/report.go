package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/telemetry"
)

// Reporter writes diagnostic records for failures. In development it logs
// them; otherwise it queues them on the telemetry sink.
type Reporter struct {
	Development bool
	Sink        telemetry.Sink
	Logger      *logging.Logger
	UserAgent   string
	Now         func() time.Time

	mu    sync.RWMutex
	route string
}

// DefaultUserAgent identifies the client in diagnostic records.
func DefaultUserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("storyconsole/%s (%s/%s; %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// SetRoute records the screen the user is on; it becomes the URL of
// subsequent records.
func (r *Reporter) SetRoute(route string) {
	r.mu.Lock()
	r.route = route
	r.mu.Unlock()
}

// Route returns the current screen route.
func (r *Reporter) Route() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.route
}

// LogError timestamps err, attaches the current route and client
// identification, and writes the record. The record is returned for callers
// that display it in diagnostics.
func (r *Reporter) LogError(err error, context string) telemetry.Record {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	rec := telemetry.Record{
		Context:   context,
		Timestamp: now(),
		UserAgent: r.UserAgent,
		URL:       r.Route(),
		Category:  Categorize(err).String(),
	}
	if err != nil {
		rec.Message = err.Error()
	}
	var tracer StackTracer
	if stderrors.As(err, &tracer) {
		rec.Stack = tracer.StackTrace()
	} else {
		rec.Stack = captureStackTrace(3)
	}

	if r.Development || r.Sink == nil {
		logger := r.Logger
		if logger == nil {
			logger = logging.GetGlobalLogger().WithComponent("errors")
		}
		logger.Error("Error captured",
			"context", rec.Context,
			"category", rec.Category,
			"url", rec.URL,
			"error", rec.Message)
		return rec
	}

	r.Sink.Enqueue(rec)
	return rec
}

var defaultReporter atomic.Pointer[Reporter]

func init() {
	defaultReporter.Store(&Reporter{Development: true, UserAgent: DefaultUserAgent("")})
}

// SetDefaultReporter installs the reporter used by LogError.
func SetDefaultReporter(r *Reporter) {
	if r != nil {
		defaultReporter.Store(r)
	}
}

// DefaultReporter returns the reporter used by LogError.
func DefaultReporter() *Reporter {
	return defaultReporter.Load()
}

// LogError reports err through the default reporter.
func LogError(err error, context string) telemetry.Record {
	return DefaultReporter().LogError(err, context)
}

// SetRoute updates the route of the default reporter.
func SetRoute(route string) {
	DefaultReporter().SetRoute(route)
}
