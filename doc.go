// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mpsc provides a bounded multi-producer single-consumer channel
// with zero steady-state allocation.
//
// A channel is a fixed array of slots shared by any number of Senders and
// exactly one Receiver. Producers reserve a slot with a compare-and-swap on
// the write cursor, write the payload and publish it by advancing the slot
// stamp. The consumer reads the slot at the read cursor once it is
// published and frees it for the next lap. No lock is taken on either path
// while the channel is neither full nor empty.
//
// # Quick Start
//
//	tx, rx, err := mpsc.Channel[Event](1024)
//	if err != nil {
//	    return err
//	}
//
//	// Producers: one Sender per goroutine
//	for range workers {
//	    go func(tx *mpsc.Sender[Event]) {
//	        defer tx.Close()
//	        for ev := range source {
//	            if err := tx.Send(ctx, ev); err != nil {
//	                return
//	            }
//	        }
//	    }(tx.Clone())
//	}
//	tx.Close()
//
//	// Consumer: ends once every Sender is closed and the channel is drained
//	for ev := range rx.All(ctx) {
//	    handle(ev)
//	}
//
// # Capacity
//
// The capacity is exact. Channel[T](3) holds three messages; it is not
// rounded up to a power of two. Capacities outside [1, MaxCapacity] are
// rejected with ErrInvalidCapacity. Zero-capacity rendezvous channels are
// not supported.
//
// # Blocking and Wake-ups
//
// Send parks only when the channel is full and Recv only when it is empty.
// Both use the same discipline: try, register with a notifier, try again,
// then park. A message published or a slot freed between the first attempt
// and the registration is therefore never missed.
//
// Blocked producers wait on a backpressure notifier. Each freed slot wakes
// the oldest of them, but a woken producer may be overtaken by one that
// retries first; there is no fairness guarantee beyond that. A producer
// that gives up after being woken passes the wake-up on to the next one.
//
// The consumer waits on a single-waiter drain notifier without locks.
// Producers pay one atomic load per publish when the consumer is not
// parked.
//
// # Lifecycle
//
// A channel is Open until the last Sender is closed or the Receiver is
// closed:
//
//	Open ──last Sender closed──► Closing ──Receiver closed──► Closed
//	  └──────────────Receiver closed─────────────────────────►┘
//
// In Closing the Receiver drains what is left and then receives
// ErrDisconnected. In Closed every send, blocked or not, fails with
// ErrDisconnected and hands the value back in a SendError. Disconnect on
// either handle closes the channel for admission without releasing the
// handle.
//
// Handles must be closed with Close. A handle that becomes unreachable
// without Close is released by a runtime cleanup, which runs at an
// unspecified time after a garbage collection.
//
// # Deadlines and Cancellation
//
// Send and Recv honour the context: deadline expiry is reported as
// ErrTimedOut and cancellation as context.Canceled. SendTimeout,
// SendDeadline, RecvTimeout and RecvDeadline take the bound directly. An
// elapsed deadline fails without parking only when the operation cannot
// complete immediately.
//
// A failed send never consumes the value:
//
//	if err := tx.SendTimeout(msg, time.Second); err != nil {
//	    var se *mpsc.SendError[Msg]
//	    if errors.As(err, &se) {
//	        retryLater(se.Value)
//	    }
//	}
//
// # Non-blocking and Scheduler Integration
//
// TrySend and TryRecv never park and return ErrWouldBlock (iox semantics)
// when the channel is full or empty:
//
//	if err := tx.TrySend(msg); mpsc.IsWouldBlock(err) {
//	    // Full: apply backpressure
//	}
//
// SendOp and RecvOp expose the park points to an external scheduler. Poll
// attempts the operation and, on ErrWouldBlock, leaves it registered so
// that Ready delivers a token when the operation is worth polling again.
//
// # Error Handling
//
//	ErrWouldBlock      non-blocking operation cannot proceed (control flow)
//	ErrDisconnected    the peer side is gone (permanent)
//	ErrTimedOut        the deadline elapsed first
//	ErrInvalidCapacity capacity outside [1, MaxCapacity]
//
// # Observability
//
// Lifecycle transitions are logged at debug level through the logger given
// to Builder.Logger. Nothing is logged on the send or receive path.
// Builder.Meter enables OpenTelemetry counters for sent and received
// messages, blocked operations, timeouts and disconnects.
//
// # Race Detection
//
// Go's race detector does not model the ordering established by the slot
// stamps, so concurrent stress tests that pass the payload through plain
// slot writes are excluded with the race build tag.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic operations with
// explicit memory ordering, [code.hybscloud.com/iox] for semantic errors
// and [code.hybscloud.com/spin] for CAS contention.
package mpsc
