// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"context"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
)

// Sender is the sending side of a channel.
//
// Multiple Senders are created with Clone; each clone is an independent
// producer and may be used from its own goroutine. A single Sender must not
// have two sends in flight at the same time.
//
// Close releases the Sender. Once every Sender is closed the channel moves
// to Closing and the Receiver sees ErrDisconnected after draining the
// remaining messages. A Sender that becomes unreachable without Close is
// released by the garbage collector eventually, which is later than the
// caller usually wants.
type Sender[T any] struct {
	h       *senderHandle[T]
	cleanup runtime.Cleanup
}

// senderHandle is the part of a Sender the cleanup can reach.
// It must never point back to the Sender.
type senderHandle[T any] struct {
	ch       *channel[T]
	released atomix.Uint32
	w        *waiter // lazily allocated on first blocked send
	pending  bool    // w is registered by a SendOp (owner goroutine only)
}

func newSender[T any](c *channel[T], released bool) *Sender[T] {
	s := &Sender[T]{h: &senderHandle[T]{ch: c}}
	if released {
		s.h.released.StoreRelaxed(1)
	}
	s.cleanup = runtime.AddCleanup(s, (*senderHandle[T]).release, s.h)
	return s
}

func (h *senderHandle[T]) release() {
	if h.released.CompareAndSwapAcqRel(0, 1) {
		h.withdraw()
		h.ch.releaseSender()
	}
}

// withdraw drops a registration left behind by an abandoned SendOp and
// passes on any wake-up it already received.
func (h *senderHandle[T]) withdraw() {
	if h.pending {
		h.pending = false
		h.ch.sendSig.unregister(h.w, true)
	}
}

func (h *senderHandle[T]) live() bool {
	return h.released.LoadAcquire() == 0
}

func (h *senderHandle[T]) waiter() *waiter {
	if h.w == nil {
		h.w = newWaiter()
	}
	return h.w
}

// TrySend publishes v without blocking.
//
// Returns nil on success, ErrWouldBlock if the channel is full, or
// ErrDisconnected if the channel is closing or closed. The caller keeps
// ownership of v on failure.
func (s *Sender[T]) TrySend(v T) error {
	h := s.h
	if !h.live() {
		return ErrDisconnected
	}
	h.withdraw()
	c := h.ch
	if err := c.ring.push(&v); err != nil {
		if err == ErrDisconnected {
			c.metrics.disconnected()
		}
		return err
	}
	c.recvSig.notify()
	c.metrics.sent()
	return nil
}

// Send publishes v, parking while the channel is full.
//
// Returns nil once v is published. On failure it returns a *SendError[T]
// holding v, with Err set to ErrDisconnected if the Receiver is gone,
// ErrTimedOut if the context deadline elapsed, or context.Canceled.
// Send never parks when capacity is available.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	return s.send(ctx, time.Time{}, v)
}

// SendTimeout is Send bounded by a timeout.
// A non-positive timeout makes it a TrySend that reports ErrTimedOut
// instead of ErrWouldBlock.
func (s *Sender[T]) SendTimeout(v T, timeout time.Duration) error {
	return s.send(context.Background(), time.Now().Add(timeout), v)
}

// SendDeadline is Send bounded by an absolute deadline.
// A deadline in the past fails with ErrTimedOut without parking if the
// channel is full.
func (s *Sender[T]) SendDeadline(v T, deadline time.Time) error {
	return s.send(context.Background(), deadline, v)
}

func (s *Sender[T]) send(ctx context.Context, deadline time.Time, v T) error {
	op := s.NewSendOp(v)
	err := op.Poll()
	if err == nil {
		return nil
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
				return op.abort(ErrTimedOut)
			}
			timer = time.NewTimer(d)
			expired = timer.C
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return op.abort(contextError(ctxErr))
		}

		select {
		case <-op.Ready():
		case <-ctx.Done():
			return op.abort(contextError(ctx.Err()))
		case <-expired:
			return op.abort(ErrTimedOut)
		}
		err = op.Poll()
	}
	if err != nil {
		return &SendError[T]{Value: op.value, Err: err}
	}
	return nil
}

// NewSendOp returns a resumable send of v for use by an external
// scheduler. See SendOp.
func (s *Sender[T]) NewSendOp(v T) SendOp[T] {
	return SendOp[T]{s: s, value: v}
}

// Clone returns a new independent Sender for the same channel.
// Cloning a closed Sender returns a closed Sender.
func (s *Sender[T]) Clone() *Sender[T] {
	c := s.h.ch
	if !s.h.live() {
		return newSender(c, true)
	}
	c.acquireSender()
	return newSender(c, false)
}

// Close releases the Sender. It is idempotent and always returns nil.
//
// Close must not race with a send on the same Sender.
func (s *Sender[T]) Close() error {
	s.cleanup.Stop()
	s.h.release()
	return nil
}

// Disconnect closes the channel for every handle without releasing this
// Sender. Further sends fail with ErrDisconnected; messages already in
// the channel can still be received.
func (s *Sender[T]) Disconnect() {
	s.h.ch.disconnect("disconnected by sender")
}

// IsClosed reports whether the channel no longer accepts messages,
// because the Receiver was closed or the channel was disconnected.
func (s *Sender[T]) IsClosed() bool {
	return s.h.ch.ring.closed()
}

// State returns the lifecycle state of the channel.
func (s *Sender[T]) State() State {
	return s.h.ch.currentState()
}

// Cap returns the channel capacity.
func (s *Sender[T]) Cap() int {
	return int(s.h.ch.ring.capacity)
}

// contextError maps a context error to the channel error taxonomy.
func contextError(err error) error {
	if err == context.DeadlineExceeded {
		return ErrTimedOut
	}
	return err
}
