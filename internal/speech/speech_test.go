package speech

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine speaks until cancelled or until release is closed, tracking how
// many utterances are audible at once
type fakeEngine struct {
	audible    int32
	maxAudible int32
	release    chan struct{}
	spoken     []string
	mu         sync.Mutex
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{release: make(chan struct{})}
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Speak(ctx context.Context, u Utterance, events chan<- Event) {
	n := atomic.AddInt32(&f.audible, 1)
	for {
		peak := atomic.LoadInt32(&f.maxAudible)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxAudible, peak, n) {
			break
		}
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, u.Text)
	f.mu.Unlock()

	events <- Event{Kind: EventStart}
	select {
	case <-ctx.Done():
		atomic.AddInt32(&f.audible, -1)
		events <- Event{Kind: EventEnd, Interrupted: true}
	case <-f.release:
		atomic.AddInt32(&f.audible, -1)
		events <- Event{Kind: EventEnd}
	}
}

func waitFor(t *testing.T, events <-chan Event, id string, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.UtteranceID == id && ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s of %s", kind, id)
		}
	}
}

func TestPlayTwiceKeepsOneUtteranceAudible(t *testing.T) {
	engine := newFakeEngine()
	s := NewSynthesizer(engine)
	events, unsubscribe := s.Subscribe(16)
	defer unsubscribe()

	first := s.Play(Utterance{Text: "first"})
	waitFor(t, events, first, EventStart)

	second := s.Play(Utterance{Text: "second"})
	ended := waitFor(t, events, first, EventEnd)
	assert.True(t, ended.Interrupted)
	waitFor(t, events, second, EventStart)

	assert.Equal(t, second, s.ActiveID())
	assert.EqualValues(t, 1, atomic.LoadInt32(&engine.maxAudible))

	close(engine.release)
	waitFor(t, events, second, EventEnd)
	assert.Eventually(t, func() bool { return !s.Speaking() }, time.Second, 10*time.Millisecond)
}

func TestStopInterruptsPlayback(t *testing.T) {
	s := NewSynthesizer(newFakeEngine())
	events, unsubscribe := s.Subscribe(8)
	defer unsubscribe()

	id := s.Play(Utterance{Text: "hello"})
	waitFor(t, events, id, EventStart)
	assert.True(t, s.Speaking())

	s.Stop()
	assert.False(t, s.Speaking())
	assert.Empty(t, s.ActiveID())
	assert.True(t, waitFor(t, events, id, EventEnd).Interrupted)
}

func TestNopEngineReportsError(t *testing.T) {
	s := NewSynthesizer(nil)
	assert.False(t, s.Available())
	events, unsubscribe := s.Subscribe(4)
	defer unsubscribe()

	id := s.Play(Utterance{Text: "anything"})
	ev := waitFor(t, events, id, EventError)
	assert.ErrorIs(t, ev.Err, ErrUnavailable)
	assert.Eventually(t, func() bool { return !s.Speaking() }, time.Second, 10*time.Millisecond)
}

func TestDefaultIsSingleton(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestEspeakArguments(t *testing.T) {
	e := &ExecEngine{name: "espeak-ng", args: []string{"-a", "120"}}
	args := e.Args(Utterance{Text: "שלום", Lang: "he-IL", Rate: 0.9, Pitch: 1.1})
	assert.Equal(t, []string{"-a", "120", "-v", "he", "-s", "157", "-p", "55", "--", "שלום"}, args)

	say := &ExecEngine{name: "say"}
	assert.Equal(t, []string{"hi"}, say.Args(Utterance{Text: "hi", Lang: "en-US"}))
}

func TestTextStartingWithDashIsNotAnOption(t *testing.T) {
	espeak := &ExecEngine{name: "espeak"}
	args := espeak.Args(Utterance{Text: "-w out.wav says the dragon"})
	assert.Equal(t, []string{"--", "-w out.wav says the dragon"}, args)

	spd := &ExecEngine{name: "spd-say"}
	args = spd.Args(Utterance{Text: "--help me", Lang: "en-US"})
	assert.Equal(t, []string{"-l", "en", "-w", "--", "--help me"}, args)
}

func TestMissingCommandFallsBackToNop(t *testing.T) {
	_, err := NewExecEngine("definitely-not-a-speech-command")
	assert.Error(t, err)

	engine := DetectEngine("definitely-not-a-speech-command")
	assert.False(t, engine.Available())
}
