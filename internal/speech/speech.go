// Package speech reads story text aloud. A single process-wide Synthesizer
// guarantees that at most one utterance is audible at a time.
package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/storynest/console/internal/logging"
)

// ErrUnavailable is reported when no speech engine is installed
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Utterance is one piece of text to speak
type Utterance struct {
	ID    string
	Text  string
	Lang  string // BCP-47, e.g. "he-IL"
	Rate  float64
	Pitch float64
}

// EventKind is a lifecycle event of an utterance
type EventKind int

const (
	EventStart EventKind = iota
	EventEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	default:
		return "error"
	}
}

// Event reports progress of an utterance
type Event struct {
	UtteranceID string
	Kind        EventKind
	Err         error
	// Interrupted is set on EventEnd when playback was stopped early
	Interrupted bool
}

// Engine speaks utterances. Speak blocks until the utterance finishes or ctx
// is cancelled, reporting lifecycle events on events.
type Engine interface {
	Name() string
	Available() bool
	Speak(ctx context.Context, u Utterance, events chan<- Event)
}

type playback struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Synthesizer serializes playback on one engine
type Synthesizer struct {
	playMu sync.Mutex

	mu      sync.Mutex
	engine  Engine
	active  *playback
	subs    map[int]chan Event
	nextSub int

	logger *logging.Logger
}

// NewSynthesizer creates a synthesizer for engine
func NewSynthesizer(engine Engine) *Synthesizer {
	if engine == nil {
		engine = NopEngine{}
	}
	return &Synthesizer{
		engine: engine,
		subs:   make(map[int]chan Event),
		logger: logging.GetSpeechLogger(),
	}
}

var (
	defaultOnce  sync.Once
	defaultSynth *Synthesizer
)

// Default returns the process-wide synthesizer
func Default() *Synthesizer {
	defaultOnce.Do(func() {
		defaultSynth = NewSynthesizer(NopEngine{})
	})
	return defaultSynth
}

// SetEngine replaces the engine, stopping any active playback
func (s *Synthesizer) SetEngine(engine Engine) {
	if engine == nil {
		engine = NopEngine{}
	}
	s.Stop()
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	s.logger.Info("Speech engine configured", "engine", engine.Name(), "available", engine.Available())
}

// Available reports whether the engine can speak
func (s *Synthesizer) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Available()
}

// Play stops whatever is speaking, waits for it to fall silent, and starts
// u. It returns the utterance id.
func (s *Synthesizer) Play(u Utterance) string {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	s.stopActive()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &playback{id: u.ID, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.active = p
	engine := s.engine
	s.mu.Unlock()

	go s.run(ctx, engine, u, p)
	return u.ID
}

// Stop silences the active utterance and waits for it to end
func (s *Synthesizer) Stop() {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.stopActive()
}

// Speaking reports whether an utterance is active
func (s *Synthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// ActiveID returns the id of the active utterance, or ""
func (s *Synthesizer) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.id
}

// Subscribe registers for lifecycle events of every utterance. Events are
// dropped for subscribers whose buffer is full.
func (s *Synthesizer) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// stopActive cancels the active playback and waits; callers hold playMu
func (s *Synthesizer) stopActive() {
	s.mu.Lock()
	p := s.active
	s.mu.Unlock()
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (s *Synthesizer) run(ctx context.Context, engine Engine, u Utterance, p *playback) {
	defer close(p.done)
	defer p.cancel()

	events := make(chan Event, 4)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range events {
			ev.UtteranceID = u.ID
			if ev.Kind == EventError {
				s.logger.Warn("Speech failed", "engine", engine.Name(), "error", ev.Err)
			}
			s.publish(ev)
		}
	}()

	engine.Speak(ctx, u, events)
	close(events)
	<-forwarded

	s.mu.Lock()
	if s.active == p {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Synthesizer) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// NopEngine is used when no speech command is installed
type NopEngine struct{}

func (NopEngine) Name() string    { return "none" }
func (NopEngine) Available() bool { return false }

func (NopEngine) Speak(_ context.Context, _ Utterance, events chan<- Event) {
	events <- Event{Kind: EventError, Err: ErrUnavailable}
}
