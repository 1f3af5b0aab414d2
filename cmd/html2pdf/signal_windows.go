//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// shutdownSignals end a conversion. Ctrl+C and Ctrl+Break both arrive as
// os.Interrupt.
var shutdownSignals = []os.Signal{os.Interrupt}

// notifyContext returns a context cancelled by the first shutdown signal.
// Subprocess groups started under it are killed through their context.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
