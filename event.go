// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// waiter is a blocked producer's registration with the backpressure event.
//
// Each Sender handle owns at most one waiter, allocated on its first
// blocked send and reused afterwards. All fields except ch are guarded by
// the event mutex.
type waiter struct {
	prev, next *waiter
	ch         chan struct{} // capacity 1
	linked     bool
	notified   bool // unlinked by a notification not yet consumed
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan struct{}, 1)}
}

// event is the multi-waiter backpressure notifier.
//
// Waiters are kept in arrival order and notified from the front, but a
// notified producer may still be overtaken by one that retries admission
// first. The waiting count lets the consumer skip the mutex when no
// producer is blocked.
//
// Every access to waiting on the handshake path is an acquire-release RMW.
// A registering producer's increment and the consumer's check after
// freeing a slot are therefore totally ordered: either the check sees the
// waiter, or the increment reads from the check and the producer's
// re-check observes the freed slot.
type event struct {
	waiting atomix.Int64
	mu      sync.Mutex
	front   *waiter
	back    *waiter
	closed  bool
}

// register links w at the back of the queue. On a closed event the
// waiter is notified immediately so it cannot be stranded.
//
// The producer must retry admission after register and before parking.
func (e *event) register(w *waiter) {
	e.mu.Lock()
	drain(w.ch)
	w.notified = false
	switch {
	case e.closed:
		w.notified = true
		w.ch <- struct{}{}
	case !w.linked:
		e.pushBack(w)
		e.waiting.AddAcqRel(1)
	}
	e.mu.Unlock()
}

// unregister removes the registration of w.
//
// handOff is set when the producer gives up without taking a slot (cancel
// or deadline). If w was already notified in that case, the wake-up is
// handed to the next waiter so it is never lost. A producer that did take
// a slot consumed the wake-up and passes nothing on.
func (e *event) unregister(w *waiter, handOff bool) {
	e.mu.Lock()
	if w.linked {
		e.remove(w)
		e.waiting.AddAcqRel(-1)
	} else if handOff && w.notified && !e.closed {
		e.notifyLocked()
	}
	w.notified = false
	drain(w.ch)
	e.mu.Unlock()
}

// notifyOne wakes the oldest registered waiter, if any.
// It must follow the slot free it announces.
func (e *event) notifyOne() {
	if e.waiting.AddAcqRel(0) == 0 {
		return
	}
	e.mu.Lock()
	e.notifyLocked()
	e.mu.Unlock()
}

// notifyAll wakes every registered waiter and closes the event.
func (e *event) notifyAll() {
	e.mu.Lock()
	e.closed = true
	for e.notifyLocked() {
	}
	e.mu.Unlock()
}

// len returns the number of linked waiters.
func (e *event) len() int {
	return int(e.waiting.LoadAcquire())
}

func (e *event) notifyLocked() bool {
	w := e.front
	if w == nil {
		return false
	}
	e.remove(w)
	e.waiting.AddAcqRel(-1)
	w.notified = true
	select {
	case w.ch <- struct{}{}:
	default:
	}
	return true
}

func (e *event) pushBack(w *waiter) {
	w.prev, w.next = e.back, nil
	if e.back != nil {
		e.back.next = w
	} else {
		e.front = w
	}
	e.back = w
	w.linked = true
}

func (e *event) remove(w *waiter) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		e.front = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		e.back = w.prev
	}
	w.prev, w.next = nil, nil
	w.linked = false
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
