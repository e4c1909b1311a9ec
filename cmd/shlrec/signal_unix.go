//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals triggers graceful shutdown. SIGTERM is what process
// managers such as systemd and Kubernetes send first.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
