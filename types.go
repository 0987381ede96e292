// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

// State is the lifecycle state of a channel.
//
// Transitions are monotonic:
//
//	Open ──(last Sender closed / Disconnect)──► Closing ──(Receiver closed)──► Closed
//	Open ──────────────(Receiver closed)──────────────────────────────────────► Closed
type State uint32

const (
	// Open: at least one Sender and the Receiver are live.
	Open State = iota
	// Closing: no further message can be published. Messages already in
	// the channel can still be received; Recv reports ErrDisconnected
	// only once they are drained.
	Closing
	// Closed: the Receiver is gone. Every pending and future send fails
	// with ErrDisconnected.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Producer is the sending side of a channel as seen by code that only
// needs to push messages. *Sender implements it.
type Producer[T any] interface {
	// TrySend publishes v without blocking.
	// Returns ErrWouldBlock if the channel is full.
	TrySend(v T) error
	// Cap returns the channel capacity.
	Cap() int
}

// Consumer is the receiving side of a channel as seen by code that only
// needs to pop messages. *Receiver implements it.
type Consumer[T any] interface {
	// TryRecv removes and returns the oldest message without blocking.
	// Returns ErrWouldBlock if the channel is empty.
	TryRecv() (T, error)
	// Cap returns the channel capacity.
	Cap() int
}
