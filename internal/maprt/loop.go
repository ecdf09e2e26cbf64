package maprt

import "context"

// Loop runs posted tasks one at a time on a single goroutine. All session
// state is mutated from inside tasks, so asynchronous work (icon loads) only
// ever posts a task and never touches shared state directly.
type Loop struct {
	tasks chan func()
}

// NewLoop creates a loop with a task buffer of the given size.
func NewLoop(buffer int) *Loop {
	return &Loop{tasks: make(chan func(), buffer)}
}

// Post enqueues fn. It blocks only when the buffer is full.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.tasks <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Drain runs every task queued right now on the calling goroutine and
// returns how many ran. It is for single-goroutine callers (CLI, tests) that
// never start Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.tasks:
			fn()
			n++
		default:
			return n
		}
	}
}

// RunUntil runs tasks on the calling goroutine until done is closed, then
// drains what is still queued. It returns how many tasks ran. Producers that
// post while the caller waits on done are served, so a full buffer never
// blocks them.
func (l *Loop) RunUntil(done <-chan struct{}) int {
	n := 0
	for {
		select {
		case fn := <-l.tasks:
			fn()
			n++
		case <-done:
			return n + l.Drain()
		}
	}
}
