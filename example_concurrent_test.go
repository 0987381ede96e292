// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// These examples hand payloads between goroutines through the slot ring,
// whose ordering the race detector cannot see. They are excluded from race
// testing.

package mpsc_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"code.hybscloud.com/mpsc"
)

// Example_funnel demonstrates several producers feeding one consumer.
func Example_funnel() {
	type event struct {
		worker, seq int
	}

	tx, rx, _ := mpsc.Channel[event](2)
	defer rx.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := range 3 {
		wg.Add(1)
		go func(tx *mpsc.Sender[event]) {
			defer wg.Done()
			defer tx.Close()
			for seq := range 2 {
				tx.Send(ctx, event{worker: w, seq: seq})
			}
		}(tx.Clone())
	}
	tx.Close()

	var lines []string
	for ev := range rx.All(ctx) {
		lines = append(lines, fmt.Sprintf("worker %d seq %d", ev.worker, ev.seq))
	}
	wg.Wait()

	slices.Sort(lines)
	for _, l := range lines {
		fmt.Println(l)
	}

	// Output:
	// worker 0 seq 0
	// worker 0 seq 1
	// worker 1 seq 0
	// worker 1 seq 1
	// worker 2 seq 0
	// worker 2 seq 1
}

// Example_backpressure demonstrates a fast producer held back by a
// capacity-1 channel until the consumer catches up.
func Example_backpressure() {
	tx, rx, _ := mpsc.Channel[int](1)
	defer rx.Close()
	ctx := context.Background()

	go func() {
		defer tx.Close()
		for i := 1; i <= 4; i++ {
			// Parks whenever the previous value is still unread.
			tx.Send(ctx, i*i)
		}
	}()

	for v := range rx.All(ctx) {
		fmt.Println(v)
	}

	// Output:
	// 1
	// 4
	// 9
	// 16
}
