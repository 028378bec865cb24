// internal/paste/sequencer.go
package paste

import (
	"fmt"
	"runtime"
	"time"
)

const (
	// DefaultSettle is the minimum wait between the clipboard write and the
	// chord. Clipboard propagation is asynchronous and the OS offers no
	// completion signal, so this is a floor, not a guarantee.
	DefaultSettle = 100 * time.Millisecond

	// DefaultVerifyTimeout bounds the optional read-back confirmation loop.
	DefaultVerifyTimeout = 1 * time.Second

	verifyPollInterval = 25 * time.Millisecond
)

// Sequencer reproduces text in the focused window by writing it to the
// clipboard, waiting for the clipboard to settle, then injecting a paste
// chord. The chord lands on whatever window has focus at that moment, which
// may not be the caller's window; focus can change during the settle wait.
type Sequencer struct {
	Clipboard Clipboard
	Keyboard  Keyboard

	// Modifier is the chord's held key. Empty means the platform default
	// (cmd on macOS, ctrl elsewhere).
	Modifier string

	// Settle is the fixed wait after the clipboard write. Zero means
	// DefaultSettle.
	Settle time.Duration

	// Verify enables polling the clipboard for the written text before
	// injecting, bounded by VerifyTimeout.
	Verify        bool
	VerifyTimeout time.Duration
}

// NewSequencer returns a Sequencer bound to the real OS clipboard and
// keyboard with default timing.
func NewSequencer() *Sequencer {
	return &Sequencer{
		Clipboard: SystemClipboard{},
		Keyboard:  SystemKeyboard{},
	}
}

// PasteModifier returns the platform's paste-chord modifier key.
func PasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Insert places text on the clipboard and injects the paste chord.
//
// The sequence is fixed: write, settle, modifier-down, tap 'v', modifier-up.
// A failed clipboard write aborts before any key event. Chord events are not
// retried and the clipboard is not rolled back on a chord failure.
func (s *Sequencer) Insert(text string) error {
	if err := s.Clipboard.Write(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardWrite, err)
	}

	settle := s.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	time.Sleep(settle)

	if s.Verify {
		if err := s.waitForClipboard(text); err != nil {
			return err
		}
	}

	mod := s.Modifier
	if mod == "" {
		mod = PasteModifier()
	}

	if err := s.Keyboard.ModifierDown(mod); err != nil {
		return fmt.Errorf("%w: %s down: %v", ErrKeyInject, mod, err)
	}
	if err := s.Keyboard.Tap("v"); err != nil {
		// Still release the modifier; a stuck ctrl is worse than a lost paste.
		_ = s.Keyboard.ModifierUp(mod)
		return fmt.Errorf("%w: tap v: %v", ErrKeyInject, err)
	}
	if err := s.Keyboard.ModifierUp(mod); err != nil {
		return fmt.Errorf("%w: %s up: %v", ErrKeyInject, mod, err)
	}
	return nil
}

// waitForClipboard polls until the clipboard reads back the written text.
// Read errors are tolerated during the window; only the deadline fails it.
func (s *Sequencer) waitForClipboard(text string) error {
	timeout := s.VerifyTimeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		got, err := s.Clipboard.Read()
		if err == nil && got == text {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrClipboardSettle, timeout)
		}
		time.Sleep(verifyPollInterval)
	}
}
