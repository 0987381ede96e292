// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package mpsc

// RaceEnabled is true when the race detector is active.
// Tests use it to skip concurrent payload transfer through the slot ring:
// the detector sees atomix stamp accesses as plain accesses and reports
// the payload hand-off as a race.
const RaceEnabled = true
