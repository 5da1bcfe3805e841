// monitor.go - Queue status subscription.
//
// Replaces timer-callback polling with an explicit subscription carrying its
// own cancellation handle: the caller owns the lifecycle, not an implicit
// timer.

package batch

import (
	"sync"
	"time"
)

// Subscribe emits the queue status every interval until cancel is called.
// The channel is closed on cancellation. A slow receiver skips updates
// rather than blocking the monitor.
func (m *Manager) Subscribe(interval time.Duration) (<-chan Status, func()) {
	out := make(chan Status, 1)
	stop := make(chan struct{})

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case out <- m.GetStatus():
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
	}
	return out, cancel
}
