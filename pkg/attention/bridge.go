package attention

import "sync"

// bridge owns one callback registration on a Source. It deregisters exactly
// once no matter how many times stop is called.
type bridge struct {
	once   sync.Once
	cancel func()
}

func (b *bridge) stop() {
	b.once.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
}

// event is a callback delivered into the pipeline loop.
type event struct {
	gen    uint64 // tracker generation, attention events only
	humans []HumanID
	human  HumanID
	state  State
	isSet  bool
}

// mailbox decouples Source callbacks from the loop. put never blocks, so a
// callback fired synchronously from inside a Watch call cannot deadlock.
type mailbox struct {
	mu     sync.Mutex
	items  []event
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) put(e event) {
	m.mu.Lock()
	m.items = append(m.items, e)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}
