// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import "code.hybscloud.com/atomix"

const (
	wakerIdle uint32 = iota
	wakerWaiting
)

// waker is the single-waiter drain notifier.
//
// Only the consumer registers, so the state word is exchanged between one
// writer of "waiting" (the consumer) and any number of notifiers racing to
// take it back to "idle". The winner of that CAS delivers the token. No
// lock and no allocation on either side.
//
// Both register and notify touch the state word with a read-modify-write.
// RMWs on one word are totally ordered and always read the latest value:
// either notify reads "waiting" and delivers a token, or register reads
// from notify and, through its release, observes the slot the producer
// published before notifying.
//
// The token channel has capacity 1. A token left behind by a notify that
// raced with a successful re-check is a spurious wake-up: the consumer
// re-checks the ring and parks again.
type waker struct {
	state atomix.Uint32
	ch    chan struct{}
}

func newWaker() waker {
	return waker{ch: make(chan struct{}, 1)}
}

// register announces that the consumer is about to park.
// Registering again while already registered coalesces.
//
// The consumer must re-check the ring after register and before parking.
func (w *waker) register() {
	if w.state.CompareAndSwapAcqRel(wakerIdle, wakerWaiting) {
		return
	}
	// Already waiting: a failed CAS is only a load, so take part in the
	// RMW order explicitly.
	w.state.AddAcqRel(0)
}

// unregister withdraws a registration after the re-check succeeded.
func (w *waker) unregister() {
	w.state.StoreRelease(wakerIdle)
}

// notify wakes the registered consumer, if any.
// It must follow the publish it announces.
func (w *waker) notify() {
	if w.state.AddAcqRel(0) != wakerWaiting {
		return
	}
	if w.state.CompareAndSwapAcqRel(wakerWaiting, wakerIdle) {
		w.signal()
	}
}

// close wakes the consumer unconditionally so it observes the close.
func (w *waker) close() {
	w.state.StoreRelease(wakerIdle)
	w.signal()
}

// ready returns the channel the consumer parks on.
func (w *waker) ready() <-chan struct{} {
	return w.ch
}

// reset drops a stale token (consumer only).
func (w *waker) reset() {
	drain(w.ch)
}

func (w *waker) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}
