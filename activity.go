package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goliatone/go-collection/pkg/activity"
)

type activityActor struct {
	actorID  string
	userID   string
	tenantID string
}

// WithActivityHooks attaches activity hooks to the store. Nil entries are
// dropped. Emission is enabled whenever at least one hook remains, unless
// WithActivityConfig says otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emitter configuration.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		c := config
		cfg.activityConfig = &c
	}
}

// WithActivityActor stamps emitted events with the given identifiers.
func WithActivityActor(actorID, userID, tenantID string) Option {
	return func(cfg *storeConfig) {
		cfg.actor = activityActor{
			actorID:  strings.TrimSpace(actorID),
			userID:   strings.TrimSpace(userID),
			tenantID: strings.TrimSpace(tenantID),
		}
	}
}

// ActivityHooks returns a copy of the hooks configured on the store.
func (s *Store[T]) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func newActivityEmitter(cfg storeConfig) *activity.Emitter {
	config := activity.Config{Enabled: len(cfg.activityHooks) > 0}
	if cfg.activityConfig != nil {
		config = *cfg.activityConfig
	}
	if config.Collection == "" {
		config.Collection = cfg.name
	}
	return activity.NewEmitter(cfg.activityHooks, config)
}

func (s *Store[T]) recordEventInput(previous, next *Snapshot[T]) activity.RecordEventInput {
	return activity.RecordEventInput{
		ActorID:         s.cfg.actor.actorID,
		UserID:          s.cfg.actor.userID,
		TenantID:        s.cfg.actor.tenantID,
		Collection:      s.cfg.name,
		SnapshotID:      next.ID(),
		Version:         next.Version(),
		PreviousVersion: previous.Version(),
		OccurredAt:      s.cfg.clock(),
	}
}

// emitUpserted reports which keys were created or changed by items, with a
// JSON merge patch per changed record.
func (s *Store[T]) emitUpserted(previous, next *Snapshot[T], items []T) error {
	if !s.emitter.Enabled() {
		return nil
	}
	input := s.recordEventInput(previous, next)
	input.Patches = map[string]string{}

	seen := map[string]struct{}{}
	for _, item := range items {
		key, ok := keyOf(item, s.uniqueKey)
		if !ok {
			continue
		}
		label := activity.FormatKey(key)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}

		after, found := next.Find(key)
		if !found {
			continue
		}
		before, existed := previous.Find(key)
		if !existed {
			input.Created = append(input.Created, key)
			continue
		}
		patch, err := mergePatch(before, after)
		if err != nil {
			return fmt.Errorf("collection: activity patch for key %s: %w", label, err)
		}
		if patch == "{}" {
			continue
		}
		input.Updated = append(input.Updated, key)
		input.Patches[label] = patch
	}

	return s.emitter.Emit(context.Background(), activity.BuildRecordsUpsertedEvent(input))
}

func (s *Store[T]) emitDeleted(previous, next *Snapshot[T], removed []T, cleared bool) error {
	if !s.emitter.Enabled() {
		return nil
	}
	input := s.recordEventInput(previous, next)
	input.Cleared = cleared
	input.Deleted = make([]any, 0, len(removed))
	for _, record := range removed {
		key, _ := keyOf(record, s.uniqueKey)
		input.Deleted = append(input.Deleted, key)
	}
	return s.emitter.Emit(context.Background(), activity.BuildRecordsDeletedEvent(input))
}

func mergePatch(before, after any) (string, error) {
	original, err := json.Marshal(before)
	if err != nil {
		return "", err
	}
	modified, err := json.Marshal(after)
	if err != nil {
		return "", err
	}
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return "", err
	}
	return string(patch), nil
}
