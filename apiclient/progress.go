package apiclient

import "sync"

// ProgressFunc observes upload progress as a fraction in [0, 1]. Values never
// decrease and 1 is reported once the upload completed with a response,
// whatever its status code.
type ProgressFunc func(fraction float64)

// progressTracker turns byte counts from every attempt of one operation into
// a monotonic fraction. All methods are safe on a nil tracker.
type progressTracker struct {
	mu     sync.Mutex
	fn     ProgressFunc
	last   float64
	closed bool
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	if fn == nil {
		return nil
	}
	return &progressTracker{fn: fn, last: -1}
}

// begin reports 0 the first time an exchange starts.
func (p *progressTracker) begin() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && p.last < 0 {
		p.report(0)
	}
}

// transfer records sent of total bytes. Complete transfers are held back
// until the exchange succeeds.
func (p *progressTracker) transfer(sent, total int64) {
	if p == nil || total <= 0 {
		return
	}
	f := float64(sent) / float64(total)
	if f >= 1 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && f > p.last {
		p.report(f)
	}
}

// succeed reports 1.
func (p *progressTracker) succeed() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && p.last < 1 {
		p.report(1)
	}
}

// close drops every later report.
func (p *progressTracker) close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *progressTracker) report(f float64) {
	if f < 0 {
		f = 0
	}
	p.last = f
	p.fn(f)
}
