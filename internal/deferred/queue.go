// Package deferred runs scheduled tasks after the scheduling call returns.
//
// Tasks run one at a time on a single dispatcher goroutine in the order they
// were scheduled. A panicking task is recovered and reported through the
// queue's PanicFunc; it never stops later tasks.
package deferred

import "sync"

// Task is a unit of deferred work.
type Task func()

// PanicFunc receives values recovered from panicking tasks.
type PanicFunc func(recovered any)

// Queue is an unbounded FIFO task queue.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Task
	running bool
	closed  bool
	onPanic PanicFunc
	done    chan struct{}
}

// New starts a queue and its dispatcher goroutine.
func New(onPanic PanicFunc) *Queue {
	q := &Queue{
		onPanic: onPanic,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

// Schedule enqueues task. It reports false once the queue is closed.
func (q *Queue) Schedule(task Task) bool {
	if task == nil {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, task)
	q.cond.Broadcast()
	return true
}

// Flush blocks until the queue is idle: every task scheduled before the
// call, and any task those tasks schedule, has run. Flush must not be called
// from inside a task; the running task would wait on itself.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && (len(q.pending) > 0 || q.running) {
		q.cond.Wait()
	}
}

// Pending returns the number of tasks waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the dispatcher and drops tasks that have not started. A task
// already running finishes; Done is closed once the dispatcher exits. Close
// does not wait so it is safe to call from inside a task.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.pending = nil
	q.cond.Broadcast()
}

// Done is closed when the dispatcher goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		task := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running = true
		q.mu.Unlock()

		q.run(task)

		q.mu.Lock()
		q.running = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

func (q *Queue) run(task Task) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			q.onPanic(r)
		}
	}()
	task()
}
