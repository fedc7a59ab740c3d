package store

import "time"

// options holds settings shared by the store constructors.
type options struct {
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures a store constructor.
type Option func(*options)

// WithPollInterval sets how often the SQLite store checks for writes made
// by other processes. Zero or negative disables the check.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithClock overrides the time source used for CreatedAt and order keys.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
