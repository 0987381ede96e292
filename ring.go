// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"golang.org/x/sys/cpu"
)

// MaxCapacity is the largest capacity a channel can be created with.
const MaxCapacity = 1 << 62

// ring is a CAS-based multi-producer single-consumer bounded slot ring.
//
// Producers CAS the write cursor to reserve a slot, write the payload and
// publish it by advancing the slot stamp. The single consumer reads the
// slot at the read cursor once its stamp shows it published.
//
// A queue position packs three fields:
//
//	| lap count | closed bit | slot index |
//
// The slot index is always < capacity, so any capacity is exact. The
// closed bit is only ever set on the write cursor; once set, admission
// fails permanently.
//
// Slot occupancy relative to a position pos:
//
//	stamp == pos,   tail <= pos  Empty
//	stamp == pos,   tail >  pos  Reserved
//	stamp == pos+1               Published
type ring[T any] struct {
	_         cpu.CacheLinePad
	tail      atomix.Uint64 // Producers CAS here
	_         cpu.CacheLinePad
	head      uint64 // Consumer only
	_         cpu.CacheLinePad
	buffer    []slot[T]
	capacity  uint64
	rightMask uint64 // index and closed bit
	closedBit uint64
}

type slot[T any] struct {
	stamp atomix.Uint64
	data  T
}

// newRing creates a ring with exactly capacity slots.
// The capacity must already be validated against [1, MaxCapacity].
func newRing[T any](capacity int) *ring[T] {
	n := uint64(capacity)
	closedBit := roundToPow2(n)

	r := &ring[T]{
		buffer:    make([]slot[T], n),
		capacity:  n,
		rightMask: closedBit<<1 - 1,
		closedBit: closedBit,
	}
	for i := range n {
		r.buffer[i].stamp.StoreRelaxed(i)
	}

	return r
}

// push reserves a slot, writes elem into it and publishes it.
// Returns ErrWouldBlock if the ring is full and ErrDisconnected if the
// ring is closed.
//
// The payload is published with a release store of the stamp and the
// stamp is read with acquire, pairing with the release free in pop.
// Ordering against the notifiers is established by their read-modify-write
// operations, not here.
func (r *ring[T]) push(elem *T) error {
	sw := spin.Wait{}
	tail := r.tail.LoadRelaxed()
	for {
		if tail&r.closedBit != 0 {
			return ErrDisconnected
		}

		s := &r.buffer[tail&r.rightMask]
		stamp := s.stamp.LoadAcquire()

		switch delta := int64(stamp - tail); {
		case delta == 0:
			if r.tail.CompareAndSwapAcqRel(tail, r.next(tail)) {
				s.data = *elem
				s.stamp.StoreRelease(stamp + 1)
				return nil
			}
			sw.Once()
		case delta < 0:
			// Slot still holds the previous lap's message.
			return ErrWouldBlock
		}
		// Stale cursor or lost the race.
		tail = r.tail.LoadRelaxed()
	}
}

// pop removes and returns the oldest published element (consumer only).
// Returns ErrWouldBlock if nothing is published, and ErrDisconnected once
// the ring is closed and no slot is published or reserved.
func (r *ring[T]) pop() (T, error) {
	var zero T
	head := r.head
	s := &r.buffer[head&r.rightMask]
	stamp := s.stamp.LoadAcquire()

	if stamp == head {
		// Closed and nothing reserved past head: no message can ever be
		// published again. A reserved slot keeps the ring draining.
		if r.tail.LoadAcquire() == head|r.closedBit {
			return zero, ErrDisconnected
		}
		return zero, ErrWouldBlock
	}

	r.head = r.next(head)
	elem := s.data
	s.data = zero
	// stamp+rightMask is this index's position on the next lap.
	s.stamp.StoreRelease(stamp + r.rightMask)

	return elem, nil
}

// close sets the closed bit on the write cursor.
// Reports whether this call performed the transition.
func (r *ring[T]) close() bool {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		if tail&r.closedBit != 0 {
			return false
		}
		if r.tail.CompareAndSwapAcqRel(tail, tail|r.closedBit) {
			return true
		}
		sw.Once()
	}
}

// closed reports whether admission is permanently disabled.
func (r *ring[T]) closed() bool {
	return r.tail.LoadAcquire()&r.closedBit != 0
}

// discard drops every published element so payload references are not
// retained after the consumer is gone (consumer only).
// Returns the number of discarded elements.
func (r *ring[T]) discard() int {
	n := 0
	for {
		if _, err := r.pop(); err != nil {
			return n
		}
		n++
	}
}

// next returns the position following pos, skipping the unused index
// range between capacity and the closed bit.
func (r *ring[T]) next(pos uint64) uint64 {
	n := pos + 1
	if n&r.rightMask < r.capacity {
		return n
	}
	return pos&^r.rightMask + r.rightMask + 1
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
