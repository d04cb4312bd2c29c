package table

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// invariant crashes the process when a programmer-contract violation
// is detected (spec §7 mode 1): a self-adjacency, a duplicate
// adjacency, and the like. These indicate a
// state-machine bug whose continuation would silently corrupt the
// tree, so the engine logs the precise condition and panics rather
// than attempting to recover.
func invariant(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logrus.WithFields(logrus.Fields{
		"Topic": "table",
	}).Panic(msg)
}
