package concurrent

import "context"

type Limiter interface {
	// Add enqueue one working credential.
	Add()
	// TryAdd enqueues one working credential unless ctx is done first.
	TryAdd(ctx context.Context) error
	// Done dequeue one working credential.
	Done()
}

type limiter struct {
	working chan struct{}
}

func NewLimiter(maxConcurrency int) Limiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &limiter{
		working: make(chan struct{}, maxConcurrency),
	}
}

func (in *limiter) Add() {
	in.working <- struct{}{}
}

func (in *limiter) TryAdd(ctx context.Context) error {
	select {
	case in.working <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *limiter) Done() {
	<-in.working
}
