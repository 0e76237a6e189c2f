package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type releaserKey struct{}

// releaser collects resources opened while a command starts up and frees
// them once the command has finished, whether it failed or not.
type releaser struct {
	mu    sync.Mutex
	steps []releaseStep
}

type releaseStep struct {
	name string
	fn   func() error
}

func withReleaser(ctx context.Context) (context.Context, *releaser) {
	r := &releaser{}
	return context.WithValue(ctx, releaserKey{}, r), r
}

// releaserFrom returns the releaser in ctx, or nil. A nil releaser releases
// nothing.
func releaserFrom(ctx context.Context) *releaser {
	if ctx == nil {
		return nil
	}

	r, _ := ctx.Value(releaserKey{}).(*releaser)

	return r
}

func (r *releaser) add(name string, fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = append(r.steps, releaseStep{name: name, fn: fn})
}

// release runs the registered steps newest first. Each step runs once.
func (r *releaser) release() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	steps := r.steps
	r.steps = nil
	r.mu.Unlock()

	var errs []error

	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", steps[i].name, err)) //nolint:rawerror // internal cleanup, not user-facing
		}
	}

	return errors.Join(errs...)
}
