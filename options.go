// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsc

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// DefaultName is the channel name used in logs and metric attributes when
// none is configured.
const DefaultName = "mpsc"

// Options configures channel creation.
type Options struct {
	// Exact number of messages the channel can hold (no rounding)
	capacity int

	// Observability
	name   string
	logger *slog.Logger
	meter  metric.Meter
}

// Builder creates channels with fluent configuration.
//
// Example:
//
//	// Plain channel
//	tx, rx, err := mpsc.Build[Event](mpsc.New(1024))
//
//	// Named channel with lifecycle logging and metrics
//	tx, rx, err := mpsc.Build[Event](mpsc.New(1024).
//	    Name("ingress").
//	    Logger(slog.Default()).
//	    DefaultMeter())
type Builder struct {
	opts Options
}

// New creates a channel builder with the given capacity.
//
// The capacity is exact: New(3) holds three messages. It is validated by
// Build, which returns ErrInvalidCapacity for values outside
// [1, MaxCapacity].
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity}}
}

// Name sets the channel name reported in logs and metric attributes.
func (b *Builder) Name(name string) *Builder {
	b.opts.name = name
	return b
}

// Logger sets the logger used for lifecycle transitions.
// Nothing is logged on the send/receive path.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.opts.logger = logger
	return b
}

// Meter enables OpenTelemetry instrumentation with the given meter.
func (b *Builder) Meter(meter metric.Meter) *Builder {
	b.opts.meter = meter
	return b
}

// DefaultMeter enables OpenTelemetry instrumentation with a meter from
// the global MeterProvider.
func (b *Builder) DefaultMeter() *Builder {
	b.opts.meter = otel.Meter(instrumentationName)
	return b
}

// Build creates a channel and returns its sending and receiving sides.
//
// Returns ErrInvalidCapacity if the capacity is outside [1, MaxCapacity].
// A zero capacity is rejected: rendezvous channels are not supported.
//
// If metric instruments cannot be created the channel is still built,
// without instrumentation, and a warning is logged.
func Build[T any](b *Builder) (*Sender[T], *Receiver[T], error) {
	opts := b.opts
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	c := newChannel[T](&opts)
	return newSender(c, false), newReceiver(c), nil
}

// Channel creates a channel with the given capacity and default options.
//
// Equivalent to Build[T](New(capacity)).
func Channel[T any](capacity int) (*Sender[T], *Receiver[T], error) {
	return Build[T](New(capacity))
}

// validate checks the capacity and applies fallbacks to optional fields.
func (o *Options) validate() error {
	if o.capacity < 1 || uint64(o.capacity) > MaxCapacity {
		return ErrInvalidCapacity
	}
	if o.name == "" {
		o.name = DefaultName
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return nil
}
