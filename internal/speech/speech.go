// Package speech voices task reminders through an external text-to-speech
// command.
package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// minInterval is the shortest gap between two spoken reminders, so that
// overlapping timers can't stack audio.
const minInterval = 5 * time.Second

// ErrUnavailable means no text-to-speech command is installed.
var ErrUnavailable = errors.New("no text-to-speech command found")

// Speaker speaks short phrases, at most once per minInterval. Extra calls
// inside the window are silently dropped.
type Speaker struct {
	logger *slog.Logger

	// start launches the speech command without waiting for it.
	start func(name string, args ...string) error

	mu        sync.Mutex
	lastSpoke time.Time
	now       func() time.Time
}

// New returns a Speaker backed by the platform's speech command: say on
// macOS, espeak-ng elsewhere.
func New(logger *slog.Logger) *Speaker {
	return &Speaker{
		logger: logger,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		now: time.Now,
	}
}

// commandName returns the platform speech command.
func commandName() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak-ng"
}

// Speak voices text. Returns ErrUnavailable when the speech command is not
// installed, nil when the call was rate-limited away.
func (s *Speaker) Speak(text string) error {
	// Check and reserve the window in one critical section so that
	// concurrent calls can't both pass it and stack audio.
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastSpoke) < minInterval {
		s.mu.Unlock()
		return nil
	}
	prev := s.lastSpoke
	s.lastSpoke = now
	s.mu.Unlock()

	name := commandName()
	if err := s.start(name, text); err != nil {
		// A failed launch gives the window back.
		s.mu.Lock()
		s.lastSpoke = prev
		s.mu.Unlock()
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: install %s", ErrUnavailable, name)
		}
		return fmt.Errorf("failed to speak: %w", err)
	}

	s.logger.Debug("spoke reminder", "text", text)
	return nil
}
