// internal/paste/paste.go
//
// Capabilities consumed by the paste sequencer. The real implementations
// (robotgo.go) talk to process-wide OS resources; tests substitute fakes.
package paste

import "errors"

var (
	// ErrClipboardWrite means the clipboard service was unavailable or the
	// write was denied. No key events are issued after this.
	ErrClipboardWrite = errors.New("clipboard write failed")

	// ErrClipboardSettle means the clipboard never read back the written
	// text within the verification window.
	ErrClipboardSettle = errors.New("clipboard did not settle")

	// ErrKeyInject means one of the chord events failed at the injection
	// layer. The clipboard write is not rolled back.
	ErrKeyInject = errors.New("key injection failed")
)

// Clipboard is the system clipboard. The process does not own its lifecycle;
// writes are globally visible and irreversible.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
}

// Keyboard injects synthetic key events into whatever window holds focus.
type Keyboard interface {
	ModifierDown(mod string) error
	Tap(key string) error
	ModifierUp(mod string) error
}
