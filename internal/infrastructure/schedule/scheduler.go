// Package schedule provides the real timer-backed scheduler. Tests inject
// a recording fake instead so the retry loop runs without wall-clock waits.
package schedule

import (
	"context"
	"time"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
)

type TimerScheduler struct{}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

var _ application.Scheduler = (*TimerScheduler)(nil)

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func (TimerScheduler) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
