package lifecycle

import (
	"context"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/cdhutch/cnsf/pkg/core"
)

type noteSource struct {
	watcher core.Watchable
	out     chan lifecycle.Event

	mu     sync.Mutex
	closed bool
}

// NewSource creates a lifecycle.Source emitting the note change events of
// a watchable repository. Each emitted value is a core.Event.
func NewSource(w core.Watchable) lifecycle.Source {
	return &noteSource{
		watcher: w,
		out:     make(chan lifecycle.Event),
	}
}

func (s *noteSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start begins watching. The events channel is closed once ctx ends.
func (s *noteSource) Start(ctx context.Context) error {
	err := s.watcher.Watch(ctx, func(e core.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		select {
		case s.out <- e:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		close(s.out)
		return nil
	})
	return nil
}
