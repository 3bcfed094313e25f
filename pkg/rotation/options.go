package rotation

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	logger      zerolog.Logger
	predecessor func(path string) string
}

// Option configures a Reader
type Option func(*options)

// WithLogger sets the logger. The global zerolog logger is used by default
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPredecessor overrides how the rotated-out copy of the logical path is
// located. The default is PredecessorPath.
func WithPredecessor(locate func(path string) string) Option {
	return func(o *options) {
		o.predecessor = locate
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      log.Logger,
		predecessor: PredecessorPath,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
