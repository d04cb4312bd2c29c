package server

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// invariant crashes the process on a programmer-contract violation
// (spec §7 mode 1), matching table.invariant's behavior and the
// original source's liberal use of assert() for state-machine bugs
// whose continuation would corrupt the tree.
func invariant(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logrus.WithFields(logrus.Fields{
		"Topic": "server",
	}).Panic(msg)
}
