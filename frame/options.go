package frame

import (
	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/internal/refs"
	"github.com/go-sif/colframe/logging"
	"go.uber.org/zap"
)

// options configures a Frame. Views inherit the options of their parent.
type options struct {
	mode    colframe.Mode
	tracker *refs.Tracker
	logger  *zap.Logger
}

// Option configures a Frame
type Option func(*options)

// WithMode selects the sharing Mode of a Frame and of every view derived from
// it. ModeDefault defers to the process-wide default at the time of each write.
func WithMode(mode colframe.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithTracker selects the reference tracker a Frame registers its storage with.
// Frames which share storage must share a tracker.
func WithTracker(tracker *refs.Tracker) Option {
	return func(o *options) {
		o.tracker = tracker
	}
}

// WithLogger sets the logger a Frame reports view construction and copies to
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func createOptionsWithDefaults(opts []Option) *options {
	o := &options{mode: colframe.ModeDefault}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracker == nil {
		o.tracker = refs.Default()
	}
	if o.logger == nil {
		o.logger = logging.Named("frame")
	}
	return o
}
