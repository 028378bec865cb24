// internal/paste/robotgo.go
package paste

import "github.com/go-vgo/robotgo"

// SystemClipboard is the process-wide OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error { return robotgo.WriteAll(text) }

func (SystemClipboard) Read() (string, error) { return robotgo.ReadAll() }

// SystemKeyboard injects events through robotgo. Requires the platform's
// accessibility/input permission; without it, failures surface as injection
// errors rather than being detected up front.
type SystemKeyboard struct{}

func (SystemKeyboard) ModifierDown(mod string) error { return robotgo.KeyToggle(mod, "down") }

func (SystemKeyboard) Tap(key string) error { return robotgo.KeyTap(key) }

func (SystemKeyboard) ModifierUp(mod string) error { return robotgo.KeyToggle(mod, "up") }
