package testutil

import (
	"log/slog"
	"testing"
	"time"
)

// WaitTimeout bounds Eventually.
const WaitTimeout = 3 * time.Second

// Eventually polls cond until it holds, failing t with msg after WaitTimeout.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(WaitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}

		time.Sleep(2 * time.Millisecond)
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
