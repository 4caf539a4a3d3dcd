package gate

import (
	"fmt"
	"sync"
	"time"
)

// FormatCountdown renders a remaining duration as m:ss, rounding partial
// seconds up so the display never reads 0:00 while the lock is still active.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := int64((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// lockoutTimer drives the countdown while the gate is locked. Start replaces
// any running countdown, Stop is idempotent and safe to call concurrently.
type lockoutTimer struct {
	mu       sync.Mutex
	stop     chan struct{}
	interval time.Duration
	now      func() time.Time
}

func newLockoutTimer(interval time.Duration, now func() time.Time) *lockoutTimer {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &lockoutTimer{interval: interval, now: now}
}

// Start ticks onTick once per interval with the formatted remaining time,
// beginning immediately, and fires it a final time with expired=true when the
// deadline passes.
func (t *lockoutTimer) Start(until time.Time, onTick func(countdown string, expired bool)) {
	t.Stop()

	t.mu.Lock()
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			remaining := until.Sub(t.now())
			if remaining <= 0 {
				onTick("0:00", true)
				return
			}
			onTick(FormatCountdown(remaining), false)
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
}

func (t *lockoutTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
