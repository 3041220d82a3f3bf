// Package poll runs bounded, early-exit polling loops described by a Policy value.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned by Until when every attempt ran without the probe succeeding.
var ErrExhausted = errors.New("poll attempts exhausted")

var errNotYet = errors.New("condition not met yet")

// Probe reports whether the awaited condition holds. A non-nil error aborts polling.
type Probe func(ctx context.Context) (bool, error)

// Policy bounds a polling loop. Interval is the first wait; each following wait is
// multiplied by Multiplier (1 keeps it constant) and capped at MaxInterval.
type Policy struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Interval    time.Duration `yaml:"interval"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxInterval time.Duration `yaml:"maxInterval"`
}

// Fixed builds a constant-interval policy.
func Fixed(attempts int, interval time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Interval: interval, Multiplier: 1}
}

// Escalating builds a policy whose wait grows by multiplier after every attempt.
func Escalating(attempts int, interval time.Duration, multiplier float64) Policy {
	return Policy{MaxAttempts: attempts, Interval: interval, Multiplier: multiplier}
}

// String renders the policy for logs.
func (p Policy) String() string {
	n := p.normalized()
	return fmt.Sprintf("%dx%s(x%.2f)", n.MaxAttempts, n.Interval, n.Multiplier)
}

// Budget is the worst-case time spent sleeping between attempts.
func (p Policy) Budget() time.Duration {
	n := p.normalized()
	var (
		total time.Duration
		wait  = n.Interval
	)
	for i := 1; i < n.MaxAttempts; i++ {
		total += wait
		wait = time.Duration(float64(wait) * n.Multiplier)
		if wait > n.MaxInterval {
			wait = n.MaxInterval
		}
	}
	return total
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Interval <= 0 {
		p.Interval = 100 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxInterval < p.Interval {
		if p.Multiplier == 1 {
			p.MaxInterval = p.Interval
		} else {
			p.MaxInterval = 10 * p.Interval
		}
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Interval
	exp.Multiplier = p.Multiplier
	exp.MaxInterval = p.MaxInterval
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// Until calls probe until it reports true, the attempts run out, or ctx is done.
// It returns the number of attempts made. The loop exits on the first success.
func (p Policy) Until(ctx context.Context, probe Probe) (int, error) {
	n := p.normalized()
	attempts := 0

	op := func() error {
		attempts++
		ok, err := probe(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotYet
		}
		return nil
	}

	err := backoff.Retry(op, n.backOff(ctx))
	switch {
	case err == nil:
		return attempts, nil
	case errors.Is(err, errNotYet):
		return attempts, ErrExhausted
	default:
		return attempts, err
	}
}
