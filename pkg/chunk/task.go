// pkg/chunk/task.go

package chunk

// task is a single-shot handle for one background I/O operation.
// An error from the operation is kept until somebody joins the task,
// which may be long after the failure happened.
type task struct {
	done chan struct{}
	err  error
}

// spawn runs fn on its own goroutine and returns a handle to join it.
// fn must only touch state that was handed to it by value, never
// session fields the foreground keeps mutating.
func spawn(fn func() error) *task {
	t := &task{done: make(chan struct{})}
	go func() {
		t.err = fn()
		close(t.done)
	}()
	return t
}

// join waits for the task and returns its error. Joining a handle that
// was never scheduled, or joining twice, is a no-op.
func (t *task) join() error {
	if t == nil {
		return nil
	}
	<-t.done
	return t.err
}
