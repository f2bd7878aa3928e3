package checkout

import (
	"context"
	"fmt"
)

// Locker serializes checkouts that share a key. TryLock reports ok=false
// when someone else holds the lock.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, ok bool, err error)
}

type NopLocker struct{}

func (NopLocker) TryLock(context.Context, string) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

func lockKey(userID int64) string {
	return fmt.Sprintf("checkout:user:%d", userID)
}
