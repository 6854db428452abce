package activity

import (
	"fmt"
	"strings"
	"time"
)

const (
	// VerbRecordsUpserted is emitted when an upsert changes a collection.
	VerbRecordsUpserted = "collection.records.upserted"
	// VerbRecordsDeleted is emitted when records are removed.
	VerbRecordsDeleted = "collection.records.deleted"

	objectTypeCollection = "collection"
)

// RecordEventInput describes the common fields for collection change events.
type RecordEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any

	// Collection names the store; it becomes the event object ID.
	Collection string
	// Created and Updated list the unique keys touched by an upsert.
	Created []any
	Updated []any
	// Deleted lists the unique keys removed by a delete.
	Deleted []any
	// Cleared marks an unconditional delete.
	Cleared bool
	// Patches maps a formatted key to its JSON merge patch.
	Patches map[string]string

	SnapshotID      string
	Version         uint64
	PreviousVersion uint64
	OccurredAt      time.Time
}

// BuildRecordsUpsertedEvent constructs a normalized activity event for an upsert.
func BuildRecordsUpsertedEvent(input RecordEventInput) Event {
	metadata := baseMetadata(input)
	if len(input.Created) > 0 {
		metadata["created_keys"] = FormatKeys(input.Created)
	}
	if len(input.Updated) > 0 {
		metadata["updated_keys"] = FormatKeys(input.Updated)
	}
	if len(input.Patches) > 0 {
		patches := make(map[string]any, len(input.Patches))
		for key, patch := range input.Patches {
			patches[key] = patch
		}
		metadata["patches"] = patches
	}
	return buildRecordsEvent(VerbRecordsUpserted, input, metadata)
}

// BuildRecordsDeletedEvent constructs a normalized activity event for a delete.
func BuildRecordsDeletedEvent(input RecordEventInput) Event {
	metadata := baseMetadata(input)
	if len(input.Deleted) > 0 {
		metadata["deleted_keys"] = FormatKeys(input.Deleted)
	}
	metadata["deleted_count"] = len(input.Deleted)
	if input.Cleared {
		metadata["cleared"] = true
	}
	return buildRecordsEvent(VerbRecordsDeleted, input, metadata)
}

// FormatKeys renders unique key values as strings.
func FormatKeys(keys []any) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, FormatKey(key))
	}
	return out
}

// FormatKey renders a single unique key value.
func FormatKey(key any) string {
	if key == nil {
		return ""
	}
	return fmt.Sprint(key)
}

func baseMetadata(input RecordEventInput) map[string]any {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["version"] = input.Version
	metadata["previous_version"] = input.PreviousVersion
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = input.SnapshotID
	}
	return metadata
}

func buildRecordsEvent(verb string, input RecordEventInput, metadata map[string]any) Event {
	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.Collection)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SnapshotID)
	}
	if objectID == "" {
		objectID = objectTypeCollection
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectTypeCollection,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
