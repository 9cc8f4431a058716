package ranking

import "time"

// Option applies a configuration option to the Index.
type Option func(*Index)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(x *Index) {
		if interval > 0 {
			x.metricsUpdateInterval = interval
		}
	}
}
