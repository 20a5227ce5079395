package archive

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/syncsoftco/tickr/internal/domain"
)

// RetryPolicy bounds the redo loop around a conflicted shard write.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryConflicts runs op under the policy, redoing it on domain.ErrConflict
// with exponential backoff. Any other error stops the loop immediately;
// exhausting the attempts surfaces the last conflict. notify fires before
// each wait.
func retryConflicts(ctx context.Context, policy RetryPolicy, notify backoff.Notify, op func() error) error {
	wrapped := func() error {
		err := op()
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval

	retries := policy.MaxAttempts
	if retries > 0 {
		retries--
	}
	return backoff.RetryNotify(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx), notify)
}
