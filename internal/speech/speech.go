// Package speech provides the best-effort speak capability of the coach.
package speech

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Speaker renders one utterance. Implementations must not block for the
// duration of the utterance.
type Speaker interface {
	Speak(text string) error
}

// Nop is a Speaker that says nothing.
type Nop struct{}

// Speak implements Speaker.
func (Nop) Speak(string) error { return nil }

// Voice wraps a Speaker with the user-facing mute flag. Failures are logged
// and swallowed so that callers can treat speaking as fire-and-forget.
type Voice struct {
	speaker Speaker
	logger  *slog.Logger
	muted   atomic.Bool
}

// NewVoice returns an unmuted voice. A nil speaker is replaced by Nop.
func NewVoice(speaker Speaker, logger *slog.Logger) *Voice {
	if speaker == nil {
		speaker = Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Voice{speaker: speaker, logger: logger}
}

// Say speaks text unless muted. The mute flag is read on every call.
func (v *Voice) Say(text string) {
	if text == "" || v.muted.Load() {
		return
	}
	if err := v.speaker.Speak(text); err != nil {
		v.logger.Warn("speech failed", "error", err)
	}
}

// SetMuted changes the mute flag.
func (v *Voice) SetMuted(muted bool) {
	v.muted.Store(muted)
}

// Muted reports the mute flag.
func (v *Voice) Muted() bool {
	return v.muted.Load()
}

// Toggle flips the mute flag and returns the new value.
func (v *Voice) Toggle() bool {
	for {
		old := v.muted.Load()
		if v.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ErrNoCommand is returned by a CommandSpeaker without a program.
var ErrNoCommand = errors.New("speech command is empty")

// CommandSpeaker speaks through an external program such as espeak or say.
// The text is passed as the last argument. Starting a new utterance stops
// the previous one.
type CommandSpeaker struct {
	name string
	args []string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewCommandSpeaker returns a speaker running name with args.
func NewCommandSpeaker(name string, args []string) *CommandSpeaker {
	return &CommandSpeaker{name: name, args: append([]string(nil), args...)}
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(text string) error {
	if s.name == "" {
		return ErrNoCommand
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	cmd := exec.Command(s.name, append(append([]string(nil), s.args...), text)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.name, err)
	}
	s.current = cmd
	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
		}
		s.mu.Unlock()
	}()
	return nil
}

// Close stops any running utterance.
func (s *CommandSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *CommandSpeaker) stopLocked() {
	if s.current == nil || s.current.Process == nil {
		return
	}
	_ = s.current.Process.Kill()
	s.current = nil
}
