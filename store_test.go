package collection

import (
	"errors"
	"reflect"
	"testing"
)

func newRecordStore(t *testing.T, cfg Config[Record], opts ...Option) *Store[Record] {
	t.Helper()
	if cfg.UniqueKey == "" {
		cfg.UniqueKey = "id"
	}
	store, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func ids(snapshot *Snapshot[Record]) []any {
	return snapshot.Keys()
}

func TestNewRequiresUniqueKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := New(Config[Record]{UniqueKey: key})
		if !errors.Is(err, ErrUniqueKeyRequired) {
			t.Fatalf("expected ErrUniqueKeyRequired for %q, got %v", key, err)
		}
	}
}

func TestNewPublishesInitialSnapshot(t *testing.T) {
	initial := []Record{{"id": 1, "name": "Jane"}}
	store := newRecordStore(t, Config[Record]{UniqueKey: " id ", Value: initial})

	snapshot := store.Value()
	if snapshot == nil || !snapshot.Sealed() {
		t.Fatalf("expected a sealed initial snapshot")
	}
	if snapshot.Version() != 0 || snapshot.ID() == "" {
		t.Fatalf("expected version 0 with an ID, got %d %q", snapshot.Version(), snapshot.ID())
	}
	if store.UniqueKey() != "id" {
		t.Fatalf("expected trimmed unique key, got %q", store.UniqueKey())
	}

	initial[0]["name"] = "changed"
	if got := snapshot.At(0)["name"]; got != "Jane" {
		t.Fatalf("expected initial value to be copied, got %v", got)
	}
}

func TestNewWithEmptyValue(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})
	if store.Value().Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d records", store.Value().Len())
	}
	if records := store.Value().Records(); records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", records)
	}
}

func TestUpsertBulkUpdate(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})

	if _, err := store.Upsert(Record{"id": 1}, Record{"id": 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.Upsert(
		Record{"id": 1, "firstName": "Meghan"},
		Record{"id": 2, "firstName": "Rosemary"},
	); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expected := []Record{
		{"id": 1, "firstName": "Meghan"},
		{"id": 2, "firstName": "Rosemary"},
	}
	if got := store.Value().Records(); !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestDeleteWithPredicateThenAll(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})
	if _, err := store.Upsert(Record{"id": 1}, Record{"id": 2}, Record{"id": 3}, Record{"id": 4}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := store.Delete(func(r Record) bool {
		id := r["id"].(int)
		return id >= 2 && id <= 3
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Value().Len() != 2 {
		t.Fatalf("expected 2 records, got %d", store.Value().Len())
	}
	if got := ids(store.Value()); !reflect.DeepEqual([]any{1, 4}, got) {
		t.Fatalf("expected ids 1 and 4 to remain, got %v", got)
	}
	if !reflect.DeepEqual([]Record{{"id": 2}, {"id": 3}}, removed) {
		t.Fatalf("expected removed records 2 and 3, got %v", removed)
	}

	removed, err = store.Delete(nil)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if store.Value().Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d", store.Value().Len())
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed records, got %d", len(removed))
	}
}

func TestDeleteRemovesByPosition(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{
		{"id": 1, "name": "same"},
		{"id": 1, "name": "same"},
		{"id": 2},
	}})

	first := true
	removed, err := store.Delete(func(r Record) bool {
		if r["id"] == 1 && first {
			first = false
			return true
		}
		return false
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 1 || store.Value().Len() != 2 {
		t.Fatalf("expected one of two equal records removed, got removed=%d len=%d", len(removed), store.Value().Len())
	}
}

func TestUpsertConcatPathsOnly(t *testing.T) {
	store := newRecordStore(t, Config[Record]{DeepMergeArrays: ConcatPaths("path.to.array")})

	if _, err := store.Upsert(Record{
		"id":            1,
		"path":          Record{"to": Record{"array": []any{"Rudy, Tyler"}}},
		"someOtherList": []any{1, 2, 3},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	matched, err := store.Upsert(Record{
		"id":            1,
		"path":          Record{"to": Record{"array": []any{"Casandra"}}},
		"someOtherList": []any{4, 5, 6},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expected := Record{
		"id":            1,
		"path":          Record{"to": Record{"array": []any{"Rudy, Tyler", "Casandra"}}},
		"someOtherList": []any{4, 5, 6},
	}
	if len(matched) != 1 || !reflect.DeepEqual(expected, matched[0]) {
		t.Fatalf("expected %v, got %v", expected, matched)
	}
	if got := store.Value().At(0); !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected snapshot record %v, got %v", expected, got)
	}
}

func TestUpsertConcatPathsDedupes(t *testing.T) {
	store := newRecordStore(t, Config[Record]{
		DeepMergeArrays: ConcatPaths("tags"),
		Value:           []Record{{"id": 1, "tags": []any{"a", "b"}}},
	})

	if _, err := store.Upsert(Record{"id": 1, "tags": []any{"b", "c", "a"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := store.Value().At(0)["tags"]; !reflect.DeepEqual([]any{"a", "b", "c"}, got) {
		t.Fatalf("expected deduped concat, got %v", got)
	}
}

func TestUpsertConcatArrays(t *testing.T) {
	store := newRecordStore(t, Config[Record]{
		DeepMergeArrays: ConcatArrays(),
		Value:           []Record{{"id": 1, "tags": []any{"a"}, "scores": []any{1}}},
	})

	if _, err := store.Upsert(Record{"id": 1, "tags": []any{"b"}, "scores": []any{1, 2}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	record := store.Value().At(0)
	if !reflect.DeepEqual([]any{"a", "b"}, record["tags"]) || !reflect.DeepEqual([]any{1, 2}, record["scores"]) {
		t.Fatalf("expected every array concatenated, got %v", record)
	}
}

func TestUpsertConcatArraysAcrossElementTypes(t *testing.T) {
	store := newRecordStore(t, Config[Record]{
		DeepMergeArrays: ConcatArrays(),
		Value:           []Record{{"id": 1, "tags": []string{"a"}}},
	})

	before := store.Value()
	if _, err := store.Upsert(Record{"id": 1, "tags": []any{"b"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if store.Value().Version() != before.Version()+1 {
		t.Fatalf("expected decoded tags to publish a new snapshot")
	}
	if got := store.Value().At(0)["tags"]; !reflect.DeepEqual([]string{"a", "b"}, got) {
		t.Fatalf("expected tags concatenated, got %#v", got)
	}
}

func TestUpsertMergesNestedMapsOfDifferentTypes(t *testing.T) {
	store := newRecordStore(t, Config[Record]{
		Value: []Record{{"id": 1, "meta": map[string]any{"a": 1, "b": 2}}},
	})

	if _, err := store.Upsert(Record{"id": 1, "meta": map[string]string{"a": "x"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	want := map[string]any{"a": "x", "b": 2}
	if got := store.Value().At(0)["meta"]; !reflect.DeepEqual(want, got) {
		t.Fatalf("expected meta %#v, got %#v", want, got)
	}
}

func TestUpsertReplacesArraysByDefault(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1, "tags": []any{"a", "b"}}}})

	if _, err := store.Upsert(Record{"id": 1, "tags": []any{"c"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := store.Value().At(0)["tags"]; !reflect.DeepEqual([]any{"c"}, got) {
		t.Fatalf("expected replaced array, got %v", got)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})
	calls := 0
	store.Subscribe(func(*Snapshot[Record]) error {
		calls++
		return nil
	})

	item := Record{"id": 1, "name": "Jane", "tags": []any{"a"}}
	if _, err := store.Upsert(item); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	first := store.Value()
	matched, err := store.Upsert(item)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if store.Value() != first {
		t.Fatalf("expected snapshot identity preserved")
	}
	if calls != 1 {
		t.Fatalf("expected one notification, got %d", calls)
	}
	if !reflect.DeepEqual(item, matched[0]) {
		t.Fatalf("expected matched record from unchanged snapshot, got %v", matched[0])
	}
}

func TestUpsertKeepsKeysUnique(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})

	batches := [][]Record{
		{{"id": 1}, {"id": 2}, {"id": 1, "name": "again"}},
		{{"id": 2, "name": "two"}, {"id": 3}},
		{{"id": 3}, {"id": 1}, {"id": "1"}},
	}
	for _, batch := range batches {
		if _, err := store.Upsert(batch...); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		seen := map[any]bool{}
		for _, key := range ids(store.Value()) {
			if seen[key] {
				t.Fatalf("duplicate key %v in %v", key, ids(store.Value()))
			}
			seen[key] = true
		}
	}
	if got := ids(store.Value()); !reflect.DeepEqual([]any{1, 2, 3, "1"}, got) {
		t.Fatalf("expected ordered unique keys, got %v", got)
	}
	if record, _ := store.Value().Find(1); record["name"] != "again" {
		t.Fatalf("expected later item merged into earlier one, got %v", record)
	}
}

func TestUpsertMissingKeyAppends(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1}}})

	matched, err := store.Upsert(Record{"name": "anonymous"}, Record{"name": "anonymous"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if store.Value().Len() != 3 {
		t.Fatalf("expected keyless items appended, got %d records", store.Value().Len())
	}
	if matched[0] != nil || matched[1] != nil {
		t.Fatalf("expected zero matches for keyless items, got %v", matched)
	}
}

func TestUpsertReturnsMatchesInInputOrder(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1, "a": 1}, {"id": 2, "a": 2}}})

	matched, err := store.Upsert(Record{"id": 2, "b": true}, Record{"id": 3}, Record{"id": 1, "b": false})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	expected := []Record{
		{"id": 2, "a": 2, "b": true},
		{"id": 3},
		{"id": 1, "a": 1, "b": false},
	}
	if !reflect.DeepEqual(expected, matched) {
		t.Fatalf("expected %v, got %v", expected, matched)
	}
}

func TestUpsertMergesNestedAndNull(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{{
		"id":       1,
		"address":  Record{"city": "Lisbon", "zip": "1000"},
		"nickname": "Meg",
	}}})

	if _, err := store.Upsert(Record{"id": 1, "address": Record{"zip": "1100"}, "nickname": nil}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	expected := Record{"id": 1, "address": Record{"city": "Lisbon", "zip": "1100"}, "nickname": nil}
	if got := store.Value().At(0); !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	item := Record{"id": 1, "nested": Record{"tags": []any{"a"}}}
	store := newRecordStore(t, Config[Record]{})
	if _, err := store.Upsert(item); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	snapshot := store.Value()

	item["nested"].(Record)["tags"].([]any)[0] = "input"
	records := snapshot.Records()
	records[0]["id"] = 99
	records[0]["nested"].(Record)["tags"].([]any)[0] = "records"
	found, _ := snapshot.Find(1)
	found["extra"] = true
	snapshot.Each(func(_ int, r Record) bool {
		r["nested"] = nil
		return true
	})

	expected := Record{"id": 1, "nested": Record{"tags": []any{"a"}}}
	if got := snapshot.At(0); !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected snapshot unchanged, got %v", got)
	}

	if _, err := store.Upsert(Record{"id": 1, "extra": true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := snapshot.At(0); !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected superseded snapshot unchanged, got %v", got)
	}
	if store.Value() == snapshot || store.Value().Version() != snapshot.Version()+1 {
		t.Fatalf("expected a new snapshot with the next version")
	}
}

func TestDeleteWithoutMatchesDoesNotNotify(t *testing.T) {
	store := newRecordStore(t, Config[Record]{Value: []Record{{"id": 1}}})
	calls := 0
	store.Subscribe(func(*Snapshot[Record]) error {
		calls++
		return nil
	})
	before := store.Value()

	removed, err := store.Delete(func(Record) bool { return false })
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if calls != 0 || store.Value() != before {
		t.Fatalf("expected no notification and same snapshot, got calls=%d", calls)
	}
	if removed == nil || len(removed) != 0 {
		t.Fatalf("expected empty removed slice, got %#v", removed)
	}
}

func TestDeleteAllOnEmptyStoreIsNoop(t *testing.T) {
	store := newRecordStore(t, Config[Record]{})
	before := store.Value()
	if _, err := store.Delete(nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Value() != before {
		t.Fatalf("expected snapshot identity preserved")
	}
}

type person struct {
	ID      int      `json:"id"`
	Name    string   `json:"name,omitempty"`
	Age     int      `json:"age,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Address *address `json:"address,omitempty"`
}

type address struct {
	City string `json:"city,omitempty"`
	Zip  string `json:"zip,omitempty"`
}

func TestStructRecords(t *testing.T) {
	store, err := New(Config[person]{
		UniqueKey:       "id",
		DeepMergeArrays: ConcatPaths("tags"),
		Value:           []person{{ID: 1, Name: "Jane", Tags: []string{"a"}, Address: &address{City: "Lyon"}}},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	matched, err := store.Upsert(person{ID: 1, Age: 40, Tags: []string{"b"}, Address: &address{Zip: "69001"}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expected := person{ID: 1, Name: "Jane", Age: 40, Tags: []string{"a", "b"}, Address: &address{City: "Lyon", Zip: "69001"}}
	if !reflect.DeepEqual(expected, matched[0]) {
		t.Fatalf("expected %+v, got %+v", expected, matched[0])
	}

	matched[0].Address.City = "Paris"
	if got := store.Value().At(0); got.Address.City != "Lyon" {
		t.Fatalf("expected stored pointer target untouched, got %q", got.Address.City)
	}

	if _, err := store.Upsert(person{ID: 2, Name: "Rudy"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := store.Value().Keys(); !reflect.DeepEqual([]any{1, 2}, got) {
		t.Fatalf("expected keys [1 2], got %v", got)
	}
}

func TestPointerRecordsStayDetached(t *testing.T) {
	item := &person{ID: 1, Name: "Jane"}
	store, err := New(Config[*person]{UniqueKey: "id"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Upsert(item); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	item.Name = "changed"
	if got := store.Value().At(0); got == item || got.Name != "Jane" {
		t.Fatalf("expected stored record detached from input, got %+v", got)
	}
}

func TestMutationLogger(t *testing.T) {
	var events []MutationLogEvent
	store := newRecordStore(t, Config[Record]{}, WithName("people"), WithMutationLogger(MutationLoggerFunc(func(event MutationLogEvent) {
		events = append(events, event)
	})))

	if _, err := store.Upsert(Record{"id": 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.Upsert(Record{"id": 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.Delete(nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	ops := []string{events[0].Op, events[1].Op, events[2].Op, events[3].Op}
	if !reflect.DeepEqual([]string{OpInit, OpUpsert, OpUpsert, OpDelete}, ops) {
		t.Fatalf("unexpected ops %v", ops)
	}
	if !events[1].Changed || events[2].Changed {
		t.Fatalf("expected only the first upsert to change, got %+v %+v", events[1], events[2])
	}
	if events[3].Affected != 1 || events[3].Version != 2 {
		t.Fatalf("unexpected delete event %+v", events[3])
	}
	for _, event := range events {
		if event.Collection != "people" {
			t.Fatalf("expected collection label, got %q", event.Collection)
		}
	}
}
