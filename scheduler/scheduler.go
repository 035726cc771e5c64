// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package scheduler contains the process-wide deferred procedure context. It
// owns a single execution behavior queue which is drained by a pump, either
// directly by the owner of the event loop or periodically by Run. Other
// goroutines never touch the queue or any sheet, they Post work to the loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/purpleidea/propsheet/behavior"
	"github.com/purpleidea/propsheet/util"

	"golang.org/x/time/rate"
)

// ErrClosed is returned when posting to a context which was closed.
const ErrClosed = util.Error("scheduler is closed")

// Context is the deferred procedure context. Build it, set the public fields,
// and then run Init before use. Close it when done.
type Context struct {
	// Interval is the period of the pump in Run. If it is zero, Run only
	// pumps when something is posted.
	Interval time.Duration

	// Limit is the maximum pump rate in Run. Zero means unlimited.
	Limit rate.Limit

	// Burst is the number of pumps allowed in a burst. It defaults to one.
	Burst int

	Debug bool
	Logf  func(format string, v ...interface{})

	queue   *behavior.Queue
	limiter *rate.Limiter

	mutex   *sync.Mutex
	inbox   []func()
	wake    chan struct{}
	quit    chan struct{}
	exited  chan struct{}
	running bool
	closed  bool
	pumps   uint64
}

// Init validates the fields and builds the internal state.
func (obj *Context) Init() error {
	if obj.Interval < 0 {
		return fmt.Errorf("negative interval: %v", obj.Interval)
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {} // noop
	}
	if obj.Limit == 0 {
		obj.Limit = rate.Inf
	}
	if obj.Burst == 0 {
		obj.Burst = 1
	}
	if obj.Burst < 0 {
		return fmt.Errorf("negative burst: %d", obj.Burst)
	}

	obj.queue = behavior.New(true) // drained on each pump
	obj.limiter = rate.NewLimiter(obj.Limit, obj.Burst)
	obj.mutex = &sync.Mutex{}
	obj.wake = make(chan struct{}, 1)
	obj.quit = make(chan struct{})
	return nil
}

// Queue returns the underlying single execution queue. Other queues can be
// attached to it so that they run on the next pump.
func (obj *Context) Queue() *behavior.Queue {
	return obj.queue
}

// Defer adds a procedure which runs on the next pump. It must only be called
// from the goroutine which owns the loop. The token can be used to cancel it.
func (obj *Context) Defer(fn func()) behavior.Token {
	return obj.queue.Insert(fn)
}

// Cancel removes a deferred procedure which has not run yet.
func (obj *Context) Cancel(token behavior.Token) error {
	return obj.queue.Disconnect(token)
}

// Post hands a procedure to the loop from any goroutine. It runs on the next
// pump, after anything that was already deferred.
func (obj *Context) Post(fn func()) error {
	obj.mutex.Lock()
	if obj.closed {
		obj.mutex.Unlock()
		return ErrClosed
	}
	obj.inbox = append(obj.inbox, fn)
	obj.mutex.Unlock()

	select {
	case obj.wake <- struct{}{}:
	default: // already signalled
	}
	return nil
}

// Pump moves all posted procedures into the queue, and then invokes the queue
// once. It returns the number of pumps done so far including this one.
func (obj *Context) Pump() uint64 {
	obj.mutex.Lock()
	inbox := obj.inbox
	obj.inbox = nil
	obj.mutex.Unlock()

	for _, fn := range inbox {
		obj.queue.Insert(fn)
	}
	if obj.Debug {
		obj.Logf("pump: %d queued (%d posted)", obj.queue.Len(), len(inbox))
	}
	obj.queue.Invoke()
	obj.pumps++
	return obj.pumps
}

// Run is the event loop. It pumps on every interval tick and whenever work is
// posted, no faster than the rate limit allows. It returns when the context
// is cancelled or the scheduler is closed, after a last pump of anything that
// was posted. Run owns the loop, so Defer should only be called from the
// procedures that it runs.
func (obj *Context) Run(ctx context.Context) error {
	obj.mutex.Lock()
	if obj.closed {
		obj.mutex.Unlock()
		return ErrClosed
	}
	if obj.running {
		obj.mutex.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	obj.running = true
	exited := make(chan struct{})
	obj.exited = exited
	obj.mutex.Unlock()

	defer func() {
		obj.Pump() // still on the loop goroutine
		obj.mutex.Lock()
		obj.running = false
		obj.mutex.Unlock()
		close(exited)
	}()

	var tick <-chan time.Time
	if obj.Interval > 0 {
		ticker := time.NewTicker(obj.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-obj.wake:
		case <-tick:
		case <-obj.quit:
			return nil
		case <-ctx.Done():
			return nil
		}

		now := time.Now()
		r := obj.limiter.ReserveN(now, 1) // one event
		if d := r.DelayFrom(now); d > 0 {
			if obj.Debug {
				obj.Logf("limited (rate: %v/sec, burst: %d, next: %v)", obj.Limit, obj.Burst, d)
			}
			timer := time.NewTimer(d)
			select {
			case <-timer.C: // the wait is over
			case <-obj.quit:
				timer.Stop()
				return nil
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
		}

		obj.Pump()
	}
}

// Close stops accepting posted work and makes sure that one last pump runs so
// that nothing which was accepted is lost. If Run is active, the last pump
// happens on its goroutine and Close waits for Run to return. Otherwise the
// caller is the loop owner and the pump runs here.
func (obj *Context) Close() error {
	obj.mutex.Lock()
	if obj.closed {
		obj.mutex.Unlock()
		return ErrClosed
	}
	obj.closed = true
	running, exited := obj.running, obj.exited
	obj.mutex.Unlock()
	close(obj.quit)

	if running {
		<-exited
		return nil
	}
	obj.Pump()
	return nil
}
