// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasToken(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestEventNotifyOneFIFO(t *testing.T) {
	var e event
	w1, w2, w3 := newWaiter(), newWaiter(), newWaiter()
	e.register(w1)
	e.register(w2)
	e.register(w3)
	require.Equal(t, 3, e.len())

	e.notifyOne()
	assert.True(t, hasToken(w1.ch), "oldest waiter first")
	assert.False(t, hasToken(w2.ch))
	assert.False(t, hasToken(w3.ch))
	assert.Equal(t, 2, e.len())

	e.notifyOne()
	assert.True(t, hasToken(w2.ch))
	assert.False(t, hasToken(w3.ch))
	assert.Equal(t, 1, e.len())
}

func TestEventNotifyOneWithoutWaiters(t *testing.T) {
	var e event
	e.notifyOne()
	assert.Equal(t, 0, e.len())
	assert.Nil(t, e.front)
}

func TestEventRegisterCoalesces(t *testing.T) {
	var e event
	w := newWaiter()
	e.register(w)
	e.register(w)
	assert.Equal(t, 1, e.len())

	e.unregister(w, true)
	assert.Equal(t, 0, e.len())
	assert.Nil(t, e.front)
	assert.Nil(t, e.back)
}

func TestEventUnregisterMiddle(t *testing.T) {
	var e event
	w1, w2, w3 := newWaiter(), newWaiter(), newWaiter()
	e.register(w1)
	e.register(w2)
	e.register(w3)

	e.unregister(w2, true)
	require.Equal(t, 2, e.len())

	e.notifyOne()
	e.notifyOne()
	assert.True(t, hasToken(w1.ch))
	assert.False(t, hasToken(w2.ch))
	assert.True(t, hasToken(w3.ch))
}

// TestEventHandOff verifies a notified waiter that gives up passes its
// wake-up to the next one.
func TestEventHandOff(t *testing.T) {
	var e event
	w1, w2 := newWaiter(), newWaiter()
	e.register(w1)
	e.register(w2)

	e.notifyOne()
	e.unregister(w1, true)

	assert.False(t, hasToken(w1.ch), "abandoned token is drained")
	assert.True(t, hasToken(w2.ch), "wake-up handed to the next waiter")
	assert.Equal(t, 0, e.len())
}

// TestEventNoHandOffAfterSuccess verifies a waiter that used its wake-up
// does not pass a spurious one on.
func TestEventNoHandOffAfterSuccess(t *testing.T) {
	var e event
	w1, w2 := newWaiter(), newWaiter()
	e.register(w1)
	e.register(w2)

	e.notifyOne()
	e.unregister(w1, false)

	assert.False(t, hasToken(w2.ch))
	assert.Equal(t, 1, e.len())
}

func TestEventNotifyAll(t *testing.T) {
	var e event
	ws := []*waiter{newWaiter(), newWaiter(), newWaiter()}
	for _, w := range ws {
		e.register(w)
	}

	e.notifyAll()
	for i, w := range ws {
		assert.True(t, hasToken(w.ch), "waiter %d", i)
	}
	assert.Equal(t, 0, e.len())

	// Registering on a closed event completes at once.
	late := newWaiter()
	e.register(late)
	assert.True(t, hasToken(late.ch))
	assert.Equal(t, 0, e.len())

	// No hand-off on a closed event.
	e.unregister(ws[0], true)
	assert.Equal(t, 0, e.len())
}

func TestEventReregisterDropsStaleToken(t *testing.T) {
	var e event
	w := newWaiter()
	e.register(w)
	e.notifyOne()

	// The producer retried, lost the slot and registers again.
	e.register(w)
	assert.False(t, hasToken(w.ch))
	assert.Equal(t, 1, e.len())
}

func TestWakerNotify(t *testing.T) {
	w := newWaker()

	w.notify()
	assert.False(t, hasToken(w.ready()), "no token without a registration")

	w.register()
	w.register()
	w.notify()
	assert.True(t, hasToken(w.ready()))

	w.notify()
	assert.False(t, hasToken(w.ready()), "one token per registration")
}

func TestWakerUnregister(t *testing.T) {
	w := newWaker()
	w.register()
	w.unregister()
	w.notify()
	assert.False(t, hasToken(w.ready()))
}

func TestWakerClose(t *testing.T) {
	w := newWaker()
	w.close()
	assert.True(t, hasToken(w.ready()), "close signals without a registration")

	w.register()
	w.close()
	w.notify()
	assert.True(t, hasToken(w.ready()))
	assert.False(t, hasToken(w.ready()))
}

func TestWakerReset(t *testing.T) {
	w := newWaker()
	w.register()
	w.notify()
	w.reset()
	assert.False(t, hasToken(w.ready()))
}

// TestWakerRegisterSeesEarlierPublish covers a notify that finds no
// registration: the re-check after register must see the message.
func TestWakerRegisterSeesEarlierPublish(t *testing.T) {
	r := newRing[int](2)
	w := newWaker()

	v := 7
	require.NoError(t, r.push(&v))
	w.notify()

	w.register()
	got, err := r.pop()
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	w.unregister()
	assert.False(t, hasToken(w.ready()))
}

const handshakeRounds = 20000

// TestDrainHandshake runs a producer against a consumer that parks on
// every empty ring. A publish whose notify misses the registration must
// be visible to the re-check, otherwise the consumer stalls.
func TestDrainHandshake(t *testing.T) {
	if RaceEnabled {
		t.Skip("skip: slot payload ordering is invisible to the race detector")
	}
	r := newRing[int](1)
	w := newWaker()

	go func() {
		for i := range handshakeRounds {
			v := i
			for r.push(&v) != nil {
				runtime.Gosched()
			}
			w.notify()
		}
	}()

	for i := range handshakeRounds {
		for {
			v, err := r.pop()
			if err != nil {
				w.reset()
				w.register()
				if v, err = r.pop(); err == nil {
					w.unregister()
				}
			}
			if err == nil {
				require.Equal(t, i, v)
				break
			}
			select {
			case <-w.ready():
			case <-time.After(5 * time.Second):
				t.Fatalf("round %d: publish not signalled", i)
			}
		}
	}
}

// TestBackpressureHandshake runs a consumer against a producer that parks
// on every full ring. A slot free whose notifyOne misses the registration
// must be visible to the re-check, otherwise the producer stalls.
func TestBackpressureHandshake(t *testing.T) {
	if RaceEnabled {
		t.Skip("skip: slot payload ordering is invisible to the race detector")
	}
	r := newRing[int](1)
	var e event
	w := newWaiter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range handshakeRounds {
			for {
				if _, err := r.pop(); err == nil {
					break
				}
				runtime.Gosched()
			}
			e.notifyOne()
		}
	}()

	for i := range handshakeRounds {
		v := i
		for r.push(&v) != nil {
			e.register(w)
			if r.push(&v) == nil {
				e.unregister(w, false)
				break
			}
			select {
			case <-w.ch:
			case <-time.After(5 * time.Second):
				t.Fatalf("round %d: slot free not signalled", i)
			}
		}
	}
	<-done
	assert.Equal(t, 0, e.len())
}
