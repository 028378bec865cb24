// cmd/voxkeyd/notify.go
package main

import (
	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

// notifyUser raises a desktop notification when enabled. Best-effort; a
// broken notification daemon must never fail the operation itself.
func notifyUser(message string) {
	if !boolDeref(cfg.Notify, false) {
		return
	}
	if err := beeep.Notify("VoxKey", message, ""); err != nil {
		logrus.WithError(err).Debug("notification failed")
	}
}
