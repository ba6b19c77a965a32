package game

import "sync"

// Subscription delivers phases from a Machine. Each subscription has its own
// unbounded queue drained by one goroutine.
type Subscription struct {
	m *Machine

	mu     sync.Mutex
	queue  []Change
	notify chan struct{}

	out      chan Change
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func newSubscription(m *Machine) *Subscription {
	return &Subscription{
		m:        m,
		notify:   make(chan struct{}, 1),
		out:      make(chan Change),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Changes yields the current phase followed by every change. It is closed
// by Close.
func (s *Subscription) Changes() <-chan Change {
	return s.out
}

// Close unsubscribes and waits for delivery to stop. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.m.unsubscribe(s)
		close(s.done)
	})
	<-s.finished
}

// push is called with the machine lock held and never blocks.
func (s *Subscription) push(c Change) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.finished)
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		c := s.queue[0]
		s.queue[0] = Change{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- c:
		case <-s.done:
			return
		}
	}
}
