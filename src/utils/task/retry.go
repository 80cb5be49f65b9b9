package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Implement operation retrying
type Retry struct {
	ctx             context.Context
	initialInterval time.Duration
	maxElapsedTime  time.Duration
	maxInterval     time.Duration

	// Called after each failed attempt.
	// Returned error replaces the original one, wrap it with backoff.Permanent to stop retrying.
	onError func(error) error
}

func NewRetry() *Retry {
	self := new(Retry)
	self.ctx = context.Background()
	self.onError = func(err error) error { return err }
	return self
}

func (self *Retry) WithInitialInterval(v time.Duration) *Retry {
	self.initialInterval = v
	return self
}

func (self *Retry) WithMaxElapsedTime(maxElapsedTime time.Duration) *Retry {
	self.maxElapsedTime = maxElapsedTime
	return self
}

func (self *Retry) WithMaxInterval(maxInterval time.Duration) *Retry {
	self.maxInterval = maxInterval
	return self
}

func (self *Retry) WithContext(ctx context.Context) *Retry {
	self.ctx = ctx
	return self
}

func (self *Retry) WithOnError(v func(error) error) *Retry {
	self.onError = v
	return self
}

func (self *Retry) Run(f func() error) error {
	b := backoff.NewExponentialBackOff()
	if self.initialInterval > 0 {
		b.InitialInterval = self.initialInterval
	}
	if self.maxInterval > 0 {
		b.MaxInterval = self.maxInterval
		// First interval is bounded too
		b.InitialInterval = min(b.InitialInterval, b.MaxInterval)
	}
	// 0 means no limit
	b.MaxElapsedTime = self.maxElapsedTime
	b.Reset()

	return backoff.Retry(func() error {
		err := f()
		if err == nil {
			return nil
		}
		return self.onError(err)
	}, backoff.WithContext(b, self.ctx))
}
