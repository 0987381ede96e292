// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"context"
	"log/slog"

	"code.hybscloud.com/atomix"
)

// channel is the state shared by every Sender and the Receiver.
//
// Handles reference the channel; the channel never references handles.
// senders counts live Sender handles and drives the Closing transition.
// refs counts every live handle and drives teardown.
type channel[T any] struct {
	ring    *ring[T]
	recvSig waker // drain notifier, consumer parks here
	sendSig event // backpressure notifier, producers park here

	senders atomix.Int64
	refs    atomix.Int64
	state   atomix.Uint32

	name    string
	logger  *slog.Logger
	metrics *metrics
}

func newChannel[T any](opts *Options) *channel[T] {
	c := &channel[T]{
		ring:    newRing[T](opts.capacity),
		recvSig: newWaker(),
		name:    opts.name,
		logger:  opts.logger,
	}
	c.senders.StoreRelaxed(1)
	c.refs.StoreRelaxed(2)

	if opts.meter != nil {
		m, err := newMetrics(opts.meter, opts.name, opts.capacity)
		if err != nil {
			c.logger.LogAttrs(context.Background(), slog.LevelWarn, "metrics disabled",
				slog.String("channel", c.name), slog.Any("error", err))
		} else {
			c.metrics = m
		}
	}

	return c
}

// acquireSender accounts for a cloned Sender. The caller holds a live
// Sender, so the count cannot be zero here.
func (c *channel[T]) acquireSender() {
	c.senders.AddAcqRel(1)
	c.refs.AddAcqRel(1)
}

// releaseSender accounts for a closed Sender. The last one closes the
// ring and wakes the consumer so it drains what is left and then observes
// the disconnect.
func (c *channel[T]) releaseSender() {
	if c.senders.AddAcqRel(-1) == 0 {
		c.ring.close()
		c.recvSig.close()
		c.transition(Closing, "last sender closed")
	}
	c.release()
}

// releaseReceiver accounts for the closed Receiver (consumer goroutine).
// Every parked producer wakes and fails with ErrDisconnected.
func (c *channel[T]) releaseReceiver() {
	c.ring.close()
	c.sendSig.notifyAll()
	if n := c.ring.discard(); n > 0 {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "discarded undelivered messages",
			slog.String("channel", c.name), slog.Int("count", n))
	}
	c.transition(Closed, "receiver closed")
	c.release()
}

// disconnect closes the channel on behalf of a live handle. Messages
// already published stay receivable.
func (c *channel[T]) disconnect(by string) {
	if c.ring.close() {
		c.transition(Closing, by)
	}
	c.recvSig.close()
	c.sendSig.notifyAll()
}

// release drops one handle reference; the last one tears the channel down.
func (c *channel[T]) release() {
	if c.refs.AddAcqRel(-1) != 0 {
		return
	}
	if err := c.metrics.unregister(); err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, "metrics unregister failed",
			slog.String("channel", c.name), slog.Any("error", err))
	}
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "channel released",
		slog.String("channel", c.name))
}

// transition advances the lifecycle state to at least to.
// Reports whether this call moved the state.
func (c *channel[T]) transition(to State, reason string) bool {
	for {
		cur := c.state.LoadAcquire()
		if State(cur) >= to {
			return false
		}
		if c.state.CompareAndSwapAcqRel(cur, uint32(to)) {
			c.logger.LogAttrs(context.Background(), slog.LevelDebug, "channel "+to.String(),
				slog.String("channel", c.name),
				slog.Int("capacity", int(c.ring.capacity)),
				slog.String("reason", reason))
			return true
		}
	}
}

func (c *channel[T]) currentState() State {
	return State(c.state.LoadAcquire())
}
