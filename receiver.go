// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"context"
	"iter"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
)

// Receiver is the receiving side of a channel.
//
// There is exactly one Receiver per channel and it is not cloneable. It
// must be used by one goroutine at a time.
//
// Close releases the Receiver: the channel moves to Closed, every blocked
// Sender fails with ErrDisconnected, and messages still in the channel
// are discarded.
type Receiver[T any] struct {
	h       *receiverHandle[T]
	cleanup runtime.Cleanup
}

type receiverHandle[T any] struct {
	ch       *channel[T]
	released atomix.Uint32
}

func newReceiver[T any](c *channel[T]) *Receiver[T] {
	r := &Receiver[T]{h: &receiverHandle[T]{ch: c}}
	r.cleanup = runtime.AddCleanup(r, (*receiverHandle[T]).release, r.h)
	return r
}

func (h *receiverHandle[T]) release() {
	if h.released.CompareAndSwapAcqRel(0, 1) {
		h.ch.releaseReceiver()
	}
}

// TryRecv removes the oldest message without blocking.
//
// Returns ErrWouldBlock if the channel is empty, or ErrDisconnected once
// every Sender is gone and no message remains. Messages published before
// the last Sender closed are always delivered first.
func (r *Receiver[T]) TryRecv() (T, error) {
	h := r.h
	c := h.ch
	if h.released.LoadAcquire() != 0 {
		var zero T
		return zero, ErrDisconnected
	}
	v, err := c.ring.pop()
	// The cleanup drains the ring; it must not run while pop does.
	runtime.KeepAlive(r)
	if err != nil {
		if err == ErrDisconnected {
			c.metrics.disconnected()
		}
		return v, err
	}
	c.sendSig.notifyOne()
	c.metrics.received()
	return v, nil
}

// Recv removes the oldest message, parking while the channel is empty.
//
// Returns ErrDisconnected once every Sender is gone and the channel is
// drained, ErrTimedOut if the context deadline elapsed, or
// context.Canceled.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	return r.recv(ctx, time.Time{})
}

// RecvTimeout is Recv bounded by a timeout.
func (r *Receiver[T]) RecvTimeout(timeout time.Duration) (T, error) {
	return r.recv(context.Background(), time.Now().Add(timeout))
}

// RecvDeadline is Recv bounded by an absolute deadline.
// A deadline in the past fails with ErrTimedOut without parking if the
// channel is empty.
func (r *Receiver[T]) RecvDeadline(deadline time.Time) (T, error) {
	return r.recv(context.Background(), deadline)
}

func (r *Receiver[T]) recv(ctx context.Context, deadline time.Time) (T, error) {
	op := r.NewRecvOp()
	v, err := op.Poll()
	if err != ErrWouldBlock {
		return v, err
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var expired <-chan time.Time
	for err == ErrWouldBlock {
		if timer == nil && !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return r.abort(&op, ErrTimedOut)
			}
			timer = time.NewTimer(d)
			expired = timer.C
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.abort(&op, contextError(ctxErr))
		}

		select {
		case <-op.Ready():
		case <-ctx.Done():
			return r.abort(&op, contextError(ctx.Err()))
		case <-expired:
			return r.abort(&op, ErrTimedOut)
		}
		v, err = op.Poll()
	}
	return v, err
}

func (r *Receiver[T]) abort(op *RecvOp[T], cause error) (T, error) {
	op.Cancel()
	if cause == ErrTimedOut {
		r.h.ch.metrics.timedOut()
	}
	var zero T
	return zero, cause
}

// NewRecvOp returns a resumable receive for use by an external scheduler.
// See RecvOp.
func (r *Receiver[T]) NewRecvOp() RecvOp[T] {
	return RecvOp[T]{r: r}
}

// All returns an iterator over received messages.
//
// The iterator parks between messages and stops when the channel is
// disconnected and drained, when ctx is done, or when the loop body
// breaks.
//
// Example:
//
//	for msg := range rx.All(ctx) {
//	    handle(msg)
//	}
func (r *Receiver[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := r.Recv(ctx)
			if err != nil || !yield(v) {
				return
			}
		}
	}
}

// Close releases the Receiver. It is idempotent and always returns nil.
func (r *Receiver[T]) Close() error {
	r.cleanup.Stop()
	r.h.release()
	return nil
}

// Disconnect closes the channel for every handle without releasing the
// Receiver. Senders fail with ErrDisconnected from now on; messages
// already in the channel can still be received.
func (r *Receiver[T]) Disconnect() {
	r.h.ch.disconnect("disconnected by receiver")
}

// State returns the lifecycle state of the channel.
func (r *Receiver[T]) State() State {
	return r.h.ch.currentState()
}

// Cap returns the channel capacity.
func (r *Receiver[T]) Cap() int {
	return int(r.h.ch.ring.capacity)
}
