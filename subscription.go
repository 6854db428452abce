package collection

// Subscription is the handle returned by Subscribe.
type Subscription[T any] struct {
	store *Store[T]
	fn    SubscriberFunc[T]
}

// Unsubscribe removes the subscription from its store. Calling it again is a
// no-op.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil || s.store == nil {
		return
	}
	s.store.Unsubscribe(s)
}

// Subscribe registers fn to receive every snapshot published from now on. It
// is not called with the current snapshot.
func (s *Store[T]) Subscribe(fn SubscriberFunc[T]) *Subscription[T] {
	sub := &Subscription[T]{store: s, fn: fn}
	if fn == nil {
		return sub
	}
	s.subscribers = append(s.subscribers, sub)
	return sub
}

// Unsubscribe removes the first registration of sub. Unknown subscriptions
// are ignored.
func (s *Store[T]) Unsubscribe(sub *Subscription[T]) {
	for i, candidate := range s.subscribers {
		if candidate == sub {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered subscriptions.
func (s *Store[T]) Subscribers() int {
	return len(s.subscribers)
}

// notify walks the live registry in order. A subscriber that mutates the
// store runs its own notification pass to completion first; the outer pass
// then continues delivering the snapshot it started with. Registry changes
// made during a pass are visible to the rest of that pass.
func (s *Store[T]) notify(snapshot *Snapshot[T]) error {
	for i := 0; i < len(s.subscribers); i++ {
		if err := s.subscribers[i].fn(snapshot); err != nil {
			return &SubscriberError{Index: i, Version: snapshot.Version(), Err: err}
		}
	}
	return nil
}
