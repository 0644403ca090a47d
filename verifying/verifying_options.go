package verifying

import (
	"errors"

	"go.uber.org/zap"
)

type option struct {
	logger *zap.Logger
}

func (o *option) validate() error {
	if o.logger == nil {
		return errors.New("`logger` is nil")
	}
	return nil
}

// OptionFunc is a function that sets an option for a ProofVerifier instance.
type OptionFunc func(*option) error

// WithLogger sets the logger used by the verifier.
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(opts *option) error {
		opts.logger = logger
		return nil
	}
}
