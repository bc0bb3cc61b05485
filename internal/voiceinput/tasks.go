package voiceinput

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// taskGroup is the cancellation set for one generation of background work.
// Reset cancels the whole group and replaces it with a fresh one.
type taskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

func newTaskGroup() *taskGroup {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	return &taskGroup{ctx: gctx, cancel: cancel, group: g}
}

// Go runs fn with the group context.
func (t *taskGroup) Go(fn func(ctx context.Context) error) {
	t.group.Go(func() error {
		return fn(t.ctx)
	})
}

// Cancel signals every task in the group to stop.
func (t *taskGroup) Cancel() {
	t.cancel()
}

// Wait blocks until every task in the group has returned.
func (t *taskGroup) Wait() error {
	return t.group.Wait()
}
