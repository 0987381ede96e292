// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"context"
	"errors"

	"code.hybscloud.com/atomix"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "code.hybscloud.com/mpsc"

// metrics holds the optional OpenTelemetry instrumentation of a channel.
//
// Counters are plain atomics bumped on the operation path and read by an
// observable callback at collection time. A nil *metrics disables
// instrumentation; every method is nil-safe.
type metrics struct {
	sentMsgs     atomix.Int64
	receivedMsgs atomix.Int64
	blockedSends atomix.Int64
	blockedRecvs atomix.Int64
	timeouts     atomix.Int64
	disconnects  atomix.Int64

	reg metric.Registration
}

func newMetrics(meter metric.Meter, name string, capacity int) (*metrics, error) {
	m := &metrics{}

	sent, err1 := meter.Int64ObservableCounter("mpsc.sent",
		metric.WithDescription("Messages published into the channel"), metric.WithUnit("{message}"))
	received, err2 := meter.Int64ObservableCounter("mpsc.received",
		metric.WithDescription("Messages drained from the channel"), metric.WithUnit("{message}"))
	blockedSends, err3 := meter.Int64ObservableCounter("mpsc.send.blocked",
		metric.WithDescription("Send operations that had to park on a full channel"), metric.WithUnit("{operation}"))
	blockedRecvs, err4 := meter.Int64ObservableCounter("mpsc.recv.blocked",
		metric.WithDescription("Receive operations that had to park on an empty channel"), metric.WithUnit("{operation}"))
	timeouts, err5 := meter.Int64ObservableCounter("mpsc.timeouts",
		metric.WithDescription("Operations that failed because their deadline elapsed"), metric.WithUnit("{operation}"))
	disconnects, err6 := meter.Int64ObservableCounter("mpsc.disconnects",
		metric.WithDescription("Operations that failed because the peer side is gone"), metric.WithUnit("{operation}"))
	capGauge, err7 := meter.Int64ObservableGauge("mpsc.capacity",
		metric.WithDescription("Configured channel capacity"), metric.WithUnit("{message}"))
	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7); err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("channel", name))
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(sent, m.sentMsgs.Load(), attrs)
		o.ObserveInt64(received, m.receivedMsgs.Load(), attrs)
		o.ObserveInt64(blockedSends, m.blockedSends.Load(), attrs)
		o.ObserveInt64(blockedRecvs, m.blockedRecvs.Load(), attrs)
		o.ObserveInt64(timeouts, m.timeouts.Load(), attrs)
		o.ObserveInt64(disconnects, m.disconnects.Load(), attrs)
		o.ObserveInt64(capGauge, int64(capacity), attrs)
		return nil
	}, sent, received, blockedSends, blockedRecvs, timeouts, disconnects, capGauge)
	if err != nil {
		return nil, err
	}
	m.reg = reg

	return m, nil
}

func (m *metrics) sent() {
	if m != nil {
		m.sentMsgs.Add(1)
	}
}

func (m *metrics) received() {
	if m != nil {
		m.receivedMsgs.Add(1)
	}
}

func (m *metrics) sendBlocked() {
	if m != nil {
		m.blockedSends.Add(1)
	}
}

func (m *metrics) recvBlocked() {
	if m != nil {
		m.blockedRecvs.Add(1)
	}
}

func (m *metrics) timedOut() {
	if m != nil {
		m.timeouts.Add(1)
	}
}

func (m *metrics) disconnected() {
	if m != nil {
		m.disconnects.Add(1)
	}
}

// unregister stops reporting. Called once on channel teardown.
func (m *metrics) unregister() error {
	if m == nil {
		return nil
	}
	return m.reg.Unregister()
}
