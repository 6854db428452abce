package hydrate

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-collection/deep"
)

// ToMap renders a record as a field map keyed by JSON names. Map records
// with string keys are copied as they are; anything else goes through
// encoding/json, so numbers become float64.
func ToMap(record any) (map[string]any, error) {
	switch typed := record.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if typed == nil {
			return map[string]any{}, nil
		}
		return deep.Clone(typed), nil
	}

	buffer, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal record: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("hydrate: record is not an object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
