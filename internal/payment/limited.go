package payment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limited bounds concurrent calls to a Provider and gives each call a deadline.
type Limited struct {
	next    Provider
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewLimited wraps next. A zero timeout leaves the caller's deadline alone.
func NewLimited(next Provider, maxConcurrent int64, timeout time.Duration) *Limited {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(maxConcurrent), timeout: timeout}
}

func (l *Limited) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	return l.do(ctx, func(ctx context.Context) (*Session, error) {
		return l.next.CreateCheckoutSession(ctx, req)
	})
}

func (l *Limited) GetSession(ctx context.Context, id string) (*Session, error) {
	return l.do(ctx, func(ctx context.Context) (*Session, error) {
		return l.next.GetSession(ctx, id)
	})
}

func (l *Limited) do(ctx context.Context, call func(context.Context) (*Session, error)) (*Session, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer l.sem.Release(1)
	return call(ctx)
}
