package events

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityAMM/internal/model"
)

// Sink receives committed event batches.
type Sink interface {
	Name() string
	Put(ctx context.Context, batch model.EventBatch) error
}

// Dispatcher delivers batches to every sink with retries. Delivery happens
// after commit, so a failing sink never affects ledger state.
type Dispatcher struct {
	sinks      []Sink
	maxTries   uint
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxTries bounds delivery attempts per sink. Zero means one attempt.
func WithMaxTries(n uint) DispatcherOption {
	return func(d *Dispatcher) { d.maxTries = n }
}

// WithBackOff overrides the retry policy.
func WithBackOff(newBackOff func() backoff.BackOff) DispatcherOption {
	return func(d *Dispatcher) { d.newBackOff = newBackOff }
}

// Default delivery retry intervals.
const (
	DefaultBackOffInitial = 200 * time.Millisecond
	DefaultBackOffMax     = 5 * time.Second
)

// ExponentialBackOff returns a policy factory with the given intervals. Zero
// values fall back to the defaults.
func ExponentialBackOff(initial, maxInterval time.Duration) func() backoff.BackOff {
	if initial <= 0 {
		initial = DefaultBackOffInitial
	}
	if maxInterval <= 0 {
		maxInterval = DefaultBackOffMax
	}
	if maxInterval < initial {
		maxInterval = initial
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		return b
	}
}

// NewDispatcher builds a Dispatcher over sinks.
func NewDispatcher(logger *zap.Logger, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		sinks:    sinks,
		maxTries: 3,
		newBackOff: ExponentialBackOff(DefaultBackOffInitial, DefaultBackOffMax),
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxTries == 0 {
		d.maxTries = 1
	}
	return d
}

// Put implements Sink so dispatchers can be nested.
func (d *Dispatcher) Put(ctx context.Context, batch model.EventBatch) error {
	return d.Publish(ctx, batch)
}

// Name implements Sink.
func (d *Dispatcher) Name() string { return "dispatcher" }

// Publish delivers batch to all sinks concurrently and joins their failures.
func (d *Dispatcher) Publish(ctx context.Context, batch model.EventBatch) error {
	if d == nil || batch.Empty() || len(d.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(d.sinks))
	var g errgroup.Group
	for i, sink := range d.sinks {
		g.Go(func() error {
			errs[i] = d.deliver(ctx, sink, batch)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, batch model.EventBatch) error {
	notify := func(err error, next time.Duration) {
		d.logger.Warn("sink delivery failed, retrying",
			zap.String("sink", sink.Name()),
			zap.Error(err),
			zap.Duration("backoff", next),
		)
	}
	operation := func() (struct{}, error) {
		return struct{}{}, sink.Put(ctx, batch)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(d.newBackOff()),
		backoff.WithMaxTries(d.maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		d.logger.Warn("sink delivery abandoned",
			zap.String("sink", sink.Name()),
			zap.Int("records", len(batch.Records)),
			zap.Error(err),
		)
		return err
	}
	d.logger.Debug("sink delivery ok",
		zap.String("sink", sink.Name()),
		zap.Int("records", len(batch.Records)),
		zap.Int("pools", len(batch.Pools)),
	)
	return nil
}
