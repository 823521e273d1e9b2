package notify

import "sync"

// Tracker counts detached background tasks so shutdown can drain them. The
// fire-time advancement after a tick runs detached from the trigger caller's
// request; without draining, process teardown could silently skip it.
type Tracker struct {
	wg sync.WaitGroup
}

// Go runs fn in a tracked goroutine.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked task has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
