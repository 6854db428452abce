// Package watch binds a single consumer to a collection store for the
// lifetime of a mount.
package watch

import (
	collection "github.com/goliatone/go-collection"
)

// RenderFunc is called with each snapshot published after Mount.
type RenderFunc[T any] func(*collection.Snapshot[T]) error

// Binding holds the subscription of one mounted consumer.
type Binding[T any] struct {
	store   *collection.Store[T]
	sub     *collection.Subscription[T]
	current *collection.Snapshot[T]
	render  RenderFunc[T]
	renders int
}

// Mount subscribes once and seeds Current with the store's snapshot. render
// is not called for the snapshot present at mount time.
func Mount[T any](store *collection.Store[T], render RenderFunc[T]) *Binding[T] {
	b := &Binding[T]{
		store:   store,
		current: store.Value(),
		render:  render,
	}
	b.sub = store.Subscribe(b.receive)
	return b
}

// receive is called for every notification. A subscriber that mutates the
// store while being notified causes the newer snapshot to arrive first, so an
// older version never replaces the one already held.
func (b *Binding[T]) receive(snapshot *collection.Snapshot[T]) error {
	if snapshot.Version() >= b.current.Version() {
		b.current = snapshot
	}
	b.renders++
	if b.render == nil {
		return nil
	}
	return b.render(snapshot)
}

// Current returns the store's live snapshot while mounted, and the last one
// held at Close afterwards.
func (b *Binding[T]) Current() *collection.Snapshot[T] {
	if b.sub != nil {
		return b.store.Value()
	}
	return b.current
}

// Renders counts the snapshots delivered since Mount.
func (b *Binding[T]) Renders() int {
	return b.renders
}

// Mounted reports whether the binding still holds its subscription.
func (b *Binding[T]) Mounted() bool {
	return b.sub != nil
}

// Close unsubscribes. Further calls are no-ops.
func (b *Binding[T]) Close() {
	if b.sub == nil {
		return
	}
	b.current = b.store.Value()
	b.sub.Unsubscribe()
	b.sub = nil
}
