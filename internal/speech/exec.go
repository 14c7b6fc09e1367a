package speech

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultCommands are tried in order when no command is configured
var DefaultCommands = []string{"espeak-ng", "espeak", "spd-say", "say"}

// ExecEngine speaks by running an external command with the text as its last
// argument
type ExecEngine struct {
	path string
	args []string
	name string
}

// NewExecEngine resolves command, which may carry extra arguments
// (e.g. "espeak-ng -a 120")
func NewExecEngine(command string) (*ExecEngine, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("speech command cannot be empty")
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("speech command %q not found: %w", fields[0], err)
	}
	return &ExecEngine{path: path, args: fields[1:], name: filepath.Base(fields[0])}, nil
}

// DetectEngine returns an engine for command, or for the first installed
// default command, falling back to NopEngine
func DetectEngine(command string) Engine {
	candidates := DefaultCommands
	if strings.TrimSpace(command) != "" {
		candidates = []string{command}
	}
	for _, c := range candidates {
		if engine, err := NewExecEngine(c); err == nil {
			return engine
		}
	}
	return NopEngine{}
}

func (e *ExecEngine) Name() string    { return e.name }
func (e *ExecEngine) Available() bool { return true }

// Speak runs the command and blocks until it exits or ctx is cancelled
func (e *ExecEngine) Speak(ctx context.Context, u Utterance, events chan<- Event) {
	cmd := exec.CommandContext(ctx, e.path, e.Args(u)...)
	if err := cmd.Start(); err != nil {
		events <- Event{Kind: EventError, Err: fmt.Errorf("failed to start %s: %w", e.name, err)}
		return
	}
	events <- Event{Kind: EventStart}

	err := cmd.Wait()
	switch {
	case ctx.Err() != nil:
		events <- Event{Kind: EventEnd, Interrupted: true}
	case err != nil:
		events <- Event{Kind: EventError, Err: fmt.Errorf("%s exited: %w", e.name, err)}
	default:
		events <- Event{Kind: EventEnd}
	}
}

// Args builds the command line for u. espeak variants get voice, speed and
// pitch flags. Engines that parse options see the text after "--" so a
// chapter starting with a dash is spoken, not parsed.
func (e *ExecEngine) Args(u Utterance) []string {
	args := append([]string(nil), e.args...)
	switch e.name {
	case "espeak-ng", "espeak":
		if voice := espeakVoice(u.Lang); voice != "" {
			args = append(args, "-v", voice)
		}
		if u.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(int(175*u.Rate)))
		}
		if u.Pitch > 0 {
			args = append(args, "-p", strconv.Itoa(clamp(int(50*u.Pitch), 0, 99)))
		}
		args = append(args, "--")
	case "spd-say":
		if u.Lang != "" {
			args = append(args, "-l", strings.SplitN(u.Lang, "-", 2)[0])
		}
		args = append(args, "-w", "--")
	}
	return append(args, u.Text)
}

func espeakVoice(lang string) string {
	switch strings.ToLower(lang) {
	case "":
		return ""
	case "he-il", "he":
		return "he"
	case "en-us":
		return "en-us"
	default:
		return strings.ToLower(strings.SplitN(lang, "-", 2)[0])
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
