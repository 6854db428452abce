package activity

import (
	"context"
	"strings"
)

// Config controls whether a store emits activity and on which channel.
// Collection names the store for events built without one.
type Config struct {
	Enabled    bool
	Channel    string
	Collection string
}

// Emitter fans out store events to hooks, filling in the default channel and
// collection.
type Emitter struct {
	hooks      Hooks
	enabled    bool
	channel    string
	collection string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "collection"
	}
	normalizedHooks := cloneHooks(hooks)
	return &Emitter{
		hooks:   normalizedHooks,
		enabled:    cfg.Enabled && len(normalizedHooks) > 0,
		channel:    channel,
		collection: strings.TrimSpace(cfg.Collection),
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default channel when
// missing. A collection event with no object ID takes the emitter's
// collection name.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" && e.channel != "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ObjectID) == "" && e.collection != "" {
		event.ObjectID = e.collection
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
