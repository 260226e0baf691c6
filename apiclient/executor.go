package apiclient

import (
	"sync"

	"github.com/b97tsk/async"
)

// Executor runs completion callbacks. Execute must not block on fn.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// SerialExecutor runs functions one at a time, in submission order, on a
// single goroutine driving an async.Executor. Spawning never blocks, so
// neither does Execute.
type SerialExecutor struct {
	exec async.Executor
	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	mu      sync.Mutex
	closing bool
}

// NewSerialExecutor starts the executor goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.exec.Autorun(e.signal)
	go e.loop()
	return e
}

// Execute queues fn. Once Close has been called, fn runs on its own
// goroutine so that it still runs exactly once.
func (e *SerialExecutor) Execute(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closing {
		go fn()
		return
	}
	e.exec.Spawn(func(co *async.Coroutine) async.Result {
		fn()
		return co.End()
	})
}

// Close stops the executor once the queued functions have run. It does not
// wait; use Done for that.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closing {
		return
	}
	e.closing = true
	e.exec.Spawn(func(co *async.Coroutine) async.Result {
		close(e.quit)
		return co.End()
	})
}

// Done is closed when the executor goroutine has exited.
func (e *SerialExecutor) Done() <-chan struct{} {
	return e.done
}

// signal is the autorun hook. It must not block, since Spawn calls it.
func (e *SerialExecutor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *SerialExecutor) loop() {
	defer close(e.done)
	for {
		select {
		case <-e.wake:
			e.exec.Run()
		case <-e.quit:
			return
		}
	}
}
