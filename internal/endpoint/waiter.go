package endpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"go.uber.org/zap"
)

// DefaultPollInterval is how long the waiter pauses between describe calls.
const DefaultPollInterval = 15 * time.Second

// StatusObserver is called with the endpoint status after every describe
// call, before any pause. It is the hook commands use to surface poll
// progress without coupling the waiter to stdout.
type StatusObserver func(status types.EndpointStatus)

// Waiter polls a SageMaker endpoint until it leaves the Creating state.
type Waiter struct {
	client      DescribeAPI
	logger      *zap.Logger
	interval    time.Duration
	maxAttempts int
	observe     StatusObserver
	sleep       func(ctx context.Context, d time.Duration) error
}

// WaiterOption configures a Waiter.
type WaiterOption func(*Waiter)

// WithInterval overrides the poll interval. Defaults to DefaultPollInterval.
func WithInterval(d time.Duration) WaiterOption {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of describe calls. Zero means unbounded,
// matching the historical behavior: the waiter loops for as long as the
// endpoint reports Creating. Callers that need a deadline instead can cancel
// the context.
func WithMaxAttempts(n int) WaiterOption {
	return func(w *Waiter) {
		w.maxAttempts = n
	}
}

// WithStatusObserver installs a per-poll status callback.
func WithStatusObserver(fn StatusObserver) WaiterOption {
	return func(w *Waiter) {
		w.observe = fn
	}
}

// NewWaiter creates a waiter polling through the given describe client.
func NewWaiter(logger *zap.Logger, client DescribeAPI, opts ...WaiterOption) *Waiter {
	w := &Waiter{
		client:   client,
		logger:   logger,
		interval: DefaultPollInterval,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait blocks until the endpoint's status is anything other than Creating and
// returns the last describe response. It makes no distinction between healthy
// and failed terminal states; the caller inspects EndpointStatus itself.
// Describe errors abort the wait and propagate as-is.
func (w *Waiter) Wait(ctx context.Context, endpointName string) (*sagemaker.DescribeEndpointOutput, error) {
	out, err := w.describe(ctx, endpointName)
	if err != nil {
		return nil, err
	}
	attempts := 1

	for out.EndpointStatus == types.EndpointStatusCreating {
		w.logger.Info("endpoint still creating",
			zap.String("endpoint_name", endpointName),
			zap.String("status", string(out.EndpointStatus)),
			zap.Int("attempts", attempts))

		if w.maxAttempts > 0 && attempts >= w.maxAttempts {
			return out, fmt.Errorf("endpoint %s still creating after %d describe attempts", endpointName, attempts)
		}

		if err := w.sleep(ctx, w.interval); err != nil {
			return out, fmt.Errorf("wait for endpoint %s aborted: %w", endpointName, err)
		}

		out, err = w.describe(ctx, endpointName)
		if err != nil {
			return nil, err
		}
		attempts++
	}

	w.logger.Info("endpoint left creating state",
		zap.String("endpoint_name", endpointName),
		zap.String("status", string(out.EndpointStatus)),
		zap.Int("attempts", attempts))

	return out, nil
}

func (w *Waiter) describe(ctx context.Context, endpointName string) (*sagemaker.DescribeEndpointOutput, error) {
	out, err := w.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe endpoint %s: %w", endpointName, err)
	}

	if w.observe != nil {
		w.observe(out.EndpointStatus)
	}

	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
