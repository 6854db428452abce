package collection

import (
	"errors"
	"strings"

	"github.com/goliatone/go-collection/deep"
	"github.com/goliatone/go-collection/pkg/activity"
	"github.com/google/uuid"
)

// Store owns an ordered set of uniquely keyed records and publishes a new
// immutable Snapshot for every effective change.
//
// A Store is not safe for concurrent use. Every operation runs to completion
// before returning, subscribers are called synchronously, and a subscriber
// may call back into the Store.
type Store[T any] struct {
	uniqueKey   string
	policy      MergePolicy
	cfg         storeConfig
	current     *Snapshot[T]
	subscribers []*Subscription[T]
	emitter     *activity.Emitter
}

// New builds a Store and publishes cfg.Value as its initial snapshot. The
// initial records are copied and trusted as given.
func New[T any](cfg Config[T], opts ...Option) (*Store[T], error) {
	key := strings.TrimSpace(cfg.UniqueKey)
	if key == "" {
		return nil, ErrUniqueKeyRequired
	}
	options := applyOptions(opts)
	s := &Store[T]{
		uniqueKey: key,
		policy:    cfg.DeepMergeArrays,
		cfg:       options,
		emitter:   newActivityEmitter(options),
	}

	start := options.clock()
	snapshot, changed, err := s.publish(deep.Clone(cfg.Value))
	s.logMutation(MutationLogEvent{
		Op:       OpInit,
		Items:    len(cfg.Value),
		Changed:  changed,
		Version:  snapshot.Version(),
		Duration: options.clock().Sub(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Value returns the current snapshot. The same pointer is returned until an
// effective change replaces it.
func (s *Store[T]) Value() *Snapshot[T] {
	return s.current
}

// UniqueKey returns the configured key field.
func (s *Store[T]) UniqueKey() string {
	return s.uniqueKey
}

// Name returns the label configured with WithName.
func (s *Store[T]) Name() string {
	return s.cfg.name
}

// Upsert merges each item into the record sharing its unique key, or appends
// it when there is none. Items are applied in order against a private copy of
// the current snapshot, which is then published.
//
// The returned slice holds, per item, the matching record of the current
// snapshot after publishing (the zero value for items without a key). A
// non-nil error reports a subscriber or activity failure; the new snapshot
// is committed regardless.
func (s *Store[T]) Upsert(items ...T) ([]T, error) {
	start := s.cfg.clock()
	previous := s.current
	candidate := deep.Clone(previous.items)

	for _, item := range items {
		index := -1
		if key, ok := keyOf(item, s.uniqueKey); ok {
			index = indexOfKey(candidate, s.uniqueKey, key)
		}
		if index == -1 {
			candidate = append(candidate, deep.Clone(item))
			continue
		}
		resolver := s.policy.resolverFor(candidate[index])
		candidate[index] = deep.Merge(candidate[index], item, resolver)
	}

	next, changed, err := s.publish(candidate)
	if changed {
		err = errors.Join(err, s.emitUpserted(previous, next, items))
	}

	current := s.current
	matched := make([]T, len(items))
	for i, item := range items {
		if key, ok := keyOf(item, s.uniqueKey); ok {
			matched[i], _ = current.Find(key)
		}
	}

	s.logMutation(MutationLogEvent{
		Op:          OpUpsert,
		Items:       len(items),
		Affected:    len(items),
		Changed:     changed,
		Version:     next.Version(),
		Subscribers: len(s.subscribers),
		Duration:    s.cfg.clock().Sub(start),
		Err:         err,
	})
	return matched, err
}

// Delete removes the records selected by predicate and returns copies of
// them, taken before publishing. A nil predicate removes every record.
func (s *Store[T]) Delete(predicate Predicate[T]) ([]T, error) {
	if predicate == nil {
		return s.deleteMatching(nil)
	}
	return s.deleteMatching(func(record T) (bool, error) {
		return predicate(record), nil
	})
}

// deleteMatching selects records by position in the current snapshot, so
// two records with equal contents are removed independently.
func (s *Store[T]) deleteMatching(match func(T) (bool, error)) ([]T, error) {
	start := s.cfg.clock()
	previous := s.current

	var affected, kept []T
	if match == nil {
		affected = previous.Records()
	} else {
		affected = []T{}
		for _, record := range previous.items {
			ok, err := match(deep.Clone(record))
			if err != nil {
				s.logMutation(MutationLogEvent{
					Op:       OpDelete,
					Version:  previous.Version(),
					Duration: s.cfg.clock().Sub(start),
					Err:      err,
				})
				return nil, err
			}
			if ok {
				affected = append(affected, deep.Clone(record))
				continue
			}
			kept = append(kept, record)
		}
	}

	next, changed, err := s.publish(kept)
	if changed {
		err = errors.Join(err, s.emitDeleted(previous, next, affected, match == nil))
	}

	s.logMutation(MutationLogEvent{
		Op:          OpDelete,
		Affected:    len(affected),
		Changed:     changed,
		Version:     next.Version(),
		Subscribers: len(s.subscribers),
		Duration:    s.cfg.clock().Sub(start),
		Err:         err,
	})
	return affected, err
}

// publish replaces the current snapshot with candidate when the two differ
// structurally, seals it, and notifies subscribers. Construction and every
// mutation go through here. An unchanged candidate keeps the current
// snapshot and its identity.
func (s *Store[T]) publish(candidate []T) (*Snapshot[T], bool, error) {
	current := s.current
	if current != nil && deep.Equal(current.items, candidate) {
		return current, false, nil
	}

	next := &Snapshot[T]{
		items:     candidate,
		uniqueKey: s.uniqueKey,
		id:        uuid.NewString(),
	}
	if current != nil {
		next.version = current.version + 1
	}
	if len(candidate) > 0 {
		deep.Freeze(next.items)
	}
	next.Seal()

	s.current = next
	return next, true, s.notify(next)
}

func (s *Store[T]) logMutation(event MutationLogEvent) {
	event.Collection = s.cfg.name
	s.mutationLogger().LogMutation(event)
}
