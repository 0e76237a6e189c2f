package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReleaser_RunsNewestFirstOnce(t *testing.T) {
	ctx, r := withReleaser(context.Background())

	if releaserFrom(ctx) != r {
		t.Fatal("releaserFrom() did not return the stored releaser")
	}

	var order []string

	r.add("log file", func() error { order = append(order, "log file"); return nil })
	r.add("telemetry", func() error { order = append(order, "telemetry"); return nil })

	if err := r.release(); err != nil {
		t.Fatalf("release() error = %v", err)
	}

	if err := r.release(); err != nil {
		t.Fatalf("second release() error = %v", err)
	}

	if got := strings.Join(order, ","); got != "telemetry,log file" {
		t.Errorf("order = %q, want telemetry,log file", got)
	}
}

func TestReleaser_JoinsNamedErrors(t *testing.T) {
	_, r := withReleaser(context.Background())

	flushErr := errors.New("flush timed out")
	closeCalled := false

	r.add("log file", func() error { closeCalled = true; return nil })
	r.add("telemetry", func() error { return flushErr })

	err := r.release()
	if !errors.Is(err, flushErr) {
		t.Fatalf("release() error = %v, want %v", err, flushErr)
	}

	if !strings.Contains(err.Error(), "cleanup telemetry") {
		t.Errorf("error %q does not name the step", err)
	}

	if !closeCalled {
		t.Error("log file not closed after an earlier step failed")
	}
}

func TestReleaserFrom_Missing(t *testing.T) {
	if got := releaserFrom(context.Background()); got != nil {
		t.Fatalf("releaserFrom() = %v, want nil", got)
	}

	var r *releaser
	if err := r.release(); err != nil {
		t.Fatalf("nil release() error = %v", err)
	}
}
