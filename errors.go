// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For TrySend and SendOp.Poll: the channel is full (backpressure).
// For TryRecv and RecvOp.Poll: the channel is empty (no data available).
//
// ErrWouldBlock is a control flow signal, not a failure. The blocking
// methods (Send, Recv and their deadline variants) never return it; they
// park until progress is possible instead.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

var (
	// ErrDisconnected reports that the peer side is permanently gone.
	//
	// For senders: the receiver was released or the channel was
	// disconnected, no message can ever be accepted again.
	// For the receiver: every sender was released (or the channel was
	// disconnected) and no message remains.
	//
	// Operations on a handle that was already closed also report
	// ErrDisconnected.
	ErrDisconnected = errors.New("mpsc: channel disconnected")

	// ErrTimedOut reports that a caller-supplied deadline elapsed before
	// the operation could complete.
	ErrTimedOut = errors.New("mpsc: operation timed out")

	// ErrInvalidCapacity is returned at construction time when the
	// requested capacity is zero, negative or greater than MaxCapacity.
	ErrInvalidCapacity = errors.New("mpsc: invalid capacity")
)

// SendError is returned by the blocking send methods when the value could
// not be committed to the channel. The value is handed back untouched so
// that nothing is silently dropped.
//
// Err is one of [ErrDisconnected], [ErrTimedOut] or the context error that
// interrupted the send ([context.Canceled]).
//
// Example:
//
//	err := s.SendTimeout(msg, time.Second)
//	var se *mpsc.SendError[Msg]
//	if errors.As(err, &se) {
//	    retryLater(se.Value)
//	}
type SendError[T any] struct {
	Value T
	Err   error
}

func (e *SendError[T]) Error() string {
	return "mpsc: send failed: " + e.Err.Error()
}

// Unwrap returns the cause so errors.Is works against the sentinels.
func (e *SendError[T]) Unwrap() error {
	return e.Err
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsDisconnected reports whether err is, or wraps, ErrDisconnected.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDisconnected)
}

// IsTimedOut reports whether err is, or wraps, ErrTimedOut.
func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}
