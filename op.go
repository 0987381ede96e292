// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

// SendOp is a resumable send for callers that drive parking themselves,
// such as an event loop or a task scheduler.
//
// Poll attempts the send once. When it returns ErrWouldBlock the operation
// is registered with the channel's backpressure notifier and Ready will
// receive a token once a slot may have been freed; the scheduler then
// calls Poll again. A wake-up is only a hint: Poll may return
// ErrWouldBlock again if another producer took the slot first.
//
// An operation must end with either a Poll that returns something other
// than ErrWouldBlock, or a Cancel. An operation abandoned while registered
// stays queued until the Sender's next operation or Close withdraws it.
// Until then it holds its place in the wake-up order and may withhold one
// wake-up from the other blocked producers.
//
// Example:
//
//	op := tx.NewSendOp(msg)
//	for {
//	    err := op.Poll()
//	    if !mpsc.IsWouldBlock(err) {
//	        return err
//	    }
//	    select {
//	    case <-op.Ready():
//	    case <-quit:
//	        op.Cancel()
//	        return errQuit
//	    }
//	}
type SendOp[T any] struct {
	s          *Sender[T]
	value      T
	err        error
	registered bool
	blocked    bool
	done       bool
}

// Poll attempts to publish the value.
//
// Returns nil once the value is published, ErrWouldBlock if the channel is
// full (the operation is now registered for wake-up), or ErrDisconnected.
// Polling a finished operation returns its result again.
func (op *SendOp[T]) Poll() error {
	if op.done {
		return op.err
	}
	h := op.s.h
	if !h.live() {
		return op.finish(ErrDisconnected)
	}
	c := h.ch
	if !op.registered {
		h.withdraw()
	}

	err := c.ring.push(&op.value)
	if err == ErrWouldBlock {
		// Register, then retry: a slot freed between the failed push and
		// the registration would otherwise never be signalled to us.
		c.sendSig.register(h.waiter())
		op.registered, h.pending = true, true
		if !op.blocked {
			op.blocked = true
			c.metrics.sendBlocked()
		}
		err = c.ring.push(&op.value)
		if err == ErrWouldBlock {
			return ErrWouldBlock
		}
	}
	return op.finish(err)
}

// Ready returns the channel that receives a token when a Poll that
// returned ErrWouldBlock is worth retrying.
func (op *SendOp[T]) Ready() <-chan struct{} {
	return op.s.h.waiter().ch
}

// Value returns the value carried by the operation.
func (op *SendOp[T]) Value() T {
	return op.value
}

// Cancel abandons the operation and withdraws its registration.
// Returns the value and true if it was not published, or the zero value
// and false if an earlier Poll already published it.
func (op *SendOp[T]) Cancel() (T, bool) {
	if op.done && op.err == nil {
		var zero T
		return zero, false
	}
	if op.registered {
		op.s.h.ch.sendSig.unregister(op.s.h.w, true)
		op.registered, op.s.h.pending = false, false
	}
	op.done = true
	if op.err == nil {
		op.err = ErrDisconnected
	}
	return op.value, true
}

// abort cancels the operation because of cause and reports it the way the
// blocking send methods do.
func (op *SendOp[T]) abort(cause error) error {
	v, _ := op.Cancel()
	op.err = cause
	if cause == ErrTimedOut {
		op.s.h.ch.metrics.timedOut()
	}
	return &SendError[T]{Value: v, Err: cause}
}

func (op *SendOp[T]) finish(err error) error {
	h := op.s.h
	c := h.ch
	if op.registered {
		// A published value consumed its wake-up; a failed one passes it on.
		c.sendSig.unregister(h.w, err != nil)
		op.registered, h.pending = false, false
	}
	op.done, op.err = true, err
	if err != nil {
		c.metrics.disconnected()
		return err
	}
	var zero T
	op.value = zero
	c.recvSig.notify()
	c.metrics.sent()
	return nil
}

// RecvOp is a resumable receive for callers that drive parking
// themselves. It mirrors SendOp on the consumer side: Poll attempts the
// receive once and, on ErrWouldBlock, leaves the Receiver registered with
// the drain notifier so that Ready receives a token once a message may be
// available or the channel closes.
type RecvOp[T any] struct {
	r          *Receiver[T]
	registered bool
	blocked    bool
}

// Poll attempts to receive the oldest message.
//
// Returns the message, ErrWouldBlock if the channel is empty (the Receiver
// is now registered for wake-up), or ErrDisconnected once every Sender is
// gone and no message remains.
func (op *RecvOp[T]) Poll() (T, error) {
	r := op.r
	v, err := r.TryRecv()
	if err != ErrWouldBlock {
		op.withdraw()
		return v, err
	}

	c := r.h.ch
	c.recvSig.reset()
	c.recvSig.register()
	op.registered = true
	if !op.blocked {
		op.blocked = true
		c.metrics.recvBlocked()
	}
	// Re-check after registering so a publish that raced with the first
	// attempt is not missed.
	v, err = r.TryRecv()
	if err != ErrWouldBlock {
		op.withdraw()
	}
	return v, err
}

// Ready returns the channel that receives a token when a Poll that
// returned ErrWouldBlock is worth retrying.
func (op *RecvOp[T]) Ready() <-chan struct{} {
	return op.r.h.ch.recvSig.ready()
}

// Cancel withdraws the registration of a pending receive.
func (op *RecvOp[T]) Cancel() {
	op.withdraw()
}

func (op *RecvOp[T]) withdraw() {
	if op.registered {
		op.r.h.ch.recvSig.unregister()
		op.registered = false
	}
}
