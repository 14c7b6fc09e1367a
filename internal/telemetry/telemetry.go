// Package telemetry queues structured diagnostic records and writes them to a
// zap-backed sink as JSON lines.
package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Record is one diagnostic record describing a failure seen by the client.
type Record struct {
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Stack     []string  `json:"stack,omitempty"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent"`
	URL       string    `json:"url"`
}

// Sink receives records. Enqueue never blocks the caller.
type Sink interface {
	Enqueue(rec Record) bool
	Close() error
}

// Config holds the settings used to build the zap logger behind a file sink.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json or console
	OutputPath string // empty means stdout
	QueueSize  int
}

const defaultQueueSize = 64

// NewLogger builds the zap logger used by the sink.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	logLevel := strings.ToLower(cfg.Level)
	if logLevel == "" {
		logLevel = "info"
	}
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != "console" && encoding != "json" {
		encoding = "json"
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{outputPath},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry logger: %w", err)
	}
	return logger, nil
}

// ZapSink drains a bounded queue of records into a zap logger on its own
// goroutine. Records arriving while the queue is full are dropped and
// counted.
type ZapSink struct {
	logger  *zap.Logger
	queue   chan Record
	done    chan struct{}
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewFileSink builds a zap logger from cfg and wraps it in a ZapSink.
func NewFileSink(cfg Config) (*ZapSink, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return NewZapSink(logger, cfg.QueueSize), nil
}

// NewZapSink starts a sink writing to logger.
func NewZapSink(logger *zap.Logger, queueSize int) *ZapSink {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &ZapSink{
		logger: logger,
		queue:  make(chan Record, queueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ZapSink) run() {
	defer close(s.done)
	for rec := range s.queue {
		s.write(rec)
	}
}

func (s *ZapSink) write(rec Record) {
	fields := []zap.Field{
		zap.String("context", rec.Context),
		zap.Time("occurred_at", rec.Timestamp),
		zap.String("user_agent", rec.UserAgent),
		zap.String("url", rec.URL),
	}
	if rec.Category != "" {
		fields = append(fields, zap.String("category", rec.Category))
	}
	if len(rec.Stack) > 0 {
		fields = append(fields, zap.Strings("stack", rec.Stack))
	}
	s.logger.Error(rec.Message, fields...)
}

// Enqueue queues rec for writing. It reports false when the record was
// dropped because the queue is full or the sink is closed.
func (s *ZapSink) Enqueue(rec Record) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.queue <- rec:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many records were discarded.
func (s *ZapSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting records, writes what is queued and syncs the logger.
func (s *ZapSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		<-s.done
		err = s.logger.Sync()
	})
	return err
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) Enqueue(Record) bool { return true }
func (NopSink) Close() error        { return nil }

// MemorySink keeps records in memory. Used in tests and by the diagnostics
// panel to show recent failures.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	limit   int
}

// NewMemorySink keeps at most limit records; zero means unbounded.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (m *MemorySink) Enqueue(rec Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if m.limit > 0 && len(m.records) > m.limit {
		m.records = m.records[len(m.records)-m.limit:]
	}
	return true
}

func (m *MemorySink) Close() error { return nil }

// Records returns a copy of the stored records, oldest first.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Fanout delivers every record to each sink.
type Fanout []Sink

func (f Fanout) Enqueue(rec Record) bool {
	ok := true
	for _, s := range f {
		if !s.Enqueue(rec) {
			ok = false
		}
	}
	return ok
}

func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
