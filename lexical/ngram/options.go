package ngram

import (
	"runtime"

	"github.com/hupe1980/sparsegram"
)

type options struct {
	logger      *sparsegram.Logger
	metrics     sparsegram.MetricsCollector
	concurrency int
}

// Option configures a MemoryIndex.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *sparsegram.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector sets a metrics collector for monitoring.
func WithMetricsCollector(mc sparsegram.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithConcurrency bounds the goroutines AddBatch uses for n-gram extraction.
// Values below 1 mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = sparsegram.NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = sparsegram.NoopMetricsCollector{}
	}
	if o.concurrency < 1 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}
