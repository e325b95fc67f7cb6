package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/raktsetu/blood-request-service/internal/metrics"
)

// options are the collaborators every service shares. Unset fields fall back
// to a discarding logger, nil metrics, time.Now and time.Local.
type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
	location *time.Location
}

type Option func(o *options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the time source, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocation sets the zone the night bonus is judged in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) now() time.Time {
	return o.clock().In(o.location)
}
