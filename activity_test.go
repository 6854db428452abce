package collection

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-collection/pkg/activity"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	store := newRecordStore(t, Config[Record]{}, WithActivityHooks(activity.Hooks{nil, hook}))
	hooks := store.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	hooks[0] = nil
	again := store.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})
	if hooks := store.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestUpsertEmitsCreatedAndUpdatedKeys(t *testing.T) {
	capture := &activity.CaptureHook{}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1, "name": "Jane", "age": 31}}},
		WithName("people"),
		WithClock(func() time.Time { return now }),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityActor(" actor-1 ", "", "tenant-1"),
	)

	if _, err := store.Upsert(
		Record{"id": 1, "age": 32},
		Record{"id": 2, "name": "Rudy"},
		Record{"id": 1, "age": 32},
	); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if len(capture.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(capture.Events))
	}
	event := capture.Events[0]
	if event.Verb != activity.VerbRecordsUpserted || event.ObjectType != "collection" || event.ObjectID != "people" {
		t.Fatalf("unexpected event identity %+v", event)
	}
	if event.Channel != "collection" || event.ActorID != "actor-1" || event.TenantID != "tenant-1" {
		t.Fatalf("unexpected event routing %+v", event)
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("expected clock timestamp, got %v", event.OccurredAt)
	}
	if !reflect.DeepEqual([]string{"2"}, event.Metadata["created_keys"]) {
		t.Fatalf("expected created key 2, got %v", event.Metadata["created_keys"])
	}
	if !reflect.DeepEqual([]string{"1"}, event.Metadata["updated_keys"]) {
		t.Fatalf("expected updated key 1, got %v", event.Metadata["updated_keys"])
	}
	patches := event.Metadata["patches"].(map[string]any)
	if patches["1"] != `{"age":32}` {
		t.Fatalf("expected merge patch for key 1, got %v", patches["1"])
	}
	if event.Metadata["snapshot_id"] != store.Value().ID() || event.Metadata["version"] != uint64(1) {
		t.Fatalf("expected snapshot metadata, got %+v", event.Metadata)
	}
}

func TestNoEventWithoutEffectiveChange(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1}}}, WithActivityHooks(activity.Hooks{capture}))

	if _, err := store.Upsert(Record{"id": 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.Delete(func(Record) bool { return false }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}

func TestDeleteEmitsDeletedKeys(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1}, {"id": 2}, {"id": 3}}},
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, Channel: "audit"}),
	)

	if _, err := store.Delete(func(r Record) bool { return r["id"] == 2 }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Delete(nil); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	if verbs := capture.Verbs(); len(verbs) != 2 || verbs[1] != activity.VerbRecordsDeleted {
		t.Fatalf("expected two delete events, got %v", verbs)
	}
	first, second := capture.Events[0], capture.Events[1]
	if first.Verb != activity.VerbRecordsDeleted || first.Channel != "audit" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if !reflect.DeepEqual([]string{"2"}, first.Metadata["deleted_keys"]) || first.Metadata["cleared"] != nil {
		t.Fatalf("unexpected first metadata %+v", first.Metadata)
	}
	if second.Metadata["cleared"] != true || second.Metadata["deleted_count"] != 2 {
		t.Fatalf("unexpected second metadata %+v", second.Metadata)
	}
	if first.ObjectID != first.Metadata["snapshot_id"] {
		t.Fatalf("expected snapshot ID as object ID for unnamed store, got %q", first.ObjectID)
	}
}

func TestActivityConfigCanDisableEmission(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newRecordStore(t, Config[Record]{},
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	if _, err := store.Upsert(Record{"id": 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected emission disabled, got %d events", len(capture.Events))
	}
}

func TestActivityHookErrorIsReportedAfterCommit(t *testing.T) {
	boom := errors.New("sink down")
	capture := &activity.CaptureHook{Err: boom}
	store := newRecordStore(t, Config[Record]{}, WithActivityHooks(activity.Hooks{capture}))

	matched, err := store.Upsert(Record{"id": 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if store.Value().Len() != 1 || matched[0]["id"] != 1 {
		t.Fatalf("expected upsert committed despite hook error")
	}
}
