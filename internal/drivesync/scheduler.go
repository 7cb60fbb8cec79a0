package drivesync

import (
	"context"
	"sync"
	"time"
)

// scheduler runs the post-connect sync timer: one settle delay, then a
// fixed-interval tick. Every tick goes through MaybeSync's gates, so the
// timer itself never forces network traffic.
type scheduler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *scheduler) start(tick func(ctx context.Context)) {
	s.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)

		settle := time.NewTimer(SyncSettleDelay)
		defer settle.Stop()
		select {
		case <-ctx.Done():
			return
		case <-settle.C:
		}

		tick(ctx)

		ticker := time.NewTicker(SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx)
			}
		}
	}()
}

func (s *scheduler) stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
