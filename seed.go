package collection

import (
	"fmt"

	"github.com/goliatone/go-collection/internal/hydrate"
	"gopkg.in/yaml.v3"
)

// SeedOption configures LoadSeed.
type SeedOption[T any] func(*seedConfig[T])

type seedConfig[T any] struct {
	name           string
	decoderOptions []hydrate.DecoderOption[T]
	strict         bool
}

// SeedWithName labels decode errors with the collection name.
func SeedWithName[T any](name string) SeedOption[T] {
	return func(cfg *seedConfig[T]) {
		cfg.name = name
	}
}

// SeedStrict rejects rows carrying fields T does not declare. It has no
// effect on map records.
func SeedStrict[T any]() SeedOption[T] {
	return func(cfg *seedConfig[T]) {
		cfg.strict = true
	}
}

// SeedTransform rewrites each row before it is decoded into T.
func SeedTransform[T any](fn func(index int, row map[string]any) (map[string]any, error)) SeedOption[T] {
	return func(cfg *seedConfig[T]) {
		if fn == nil {
			return
		}
		cfg.decoderOptions = append(cfg.decoderOptions, hydrate.WithPreHook[T](func(ctx hydrate.Context, row map[string]any) (map[string]any, error) {
			return fn(ctx.Index, row)
		}))
	}
}

// SeedValidate checks each decoded record.
func SeedValidate[T any](fn func(index int, record T) error) SeedOption[T] {
	return func(cfg *seedConfig[T]) {
		if fn == nil {
			return
		}
		cfg.decoderOptions = append(cfg.decoderOptions, hydrate.WithPostHook[T](func(ctx hydrate.Context, record *T) error {
			return fn(ctx.Index, *record)
		}))
	}
}

// LoadSeed decodes a YAML (or JSON) list of records, suitable for
// Config.Value. Rows are decoded field by field using JSON names; map
// records keep the values YAML produced.
func LoadSeed[T any](data []byte, opts ...SeedOption[T]) ([]T, error) {
	cfg := seedConfig[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("collection: parse seed: %w", err)
	}

	decoderOptions := append([]hydrate.DecoderOption[T]{}, cfg.decoderOptions...)
	var zero T
	if _, isRecord := any(zero).(Record); isRecord {
		decoderOptions = append(decoderOptions, hydrate.WithCustomDecoder[T](func(_ hydrate.Context, row map[string]any) (T, error) {
			return any(row).(T), nil
		}))
	} else if cfg.strict {
		decoderOptions = append(decoderOptions, hydrate.WithDisallowUnknownFields[T]())
	}
	decoder := hydrate.NewDecoder(decoderOptions...)

	records := make([]T, 0, len(rows))
	for i, row := range rows {
		record, err := decoder.Decode(hydrate.Context{Collection: cfg.name, Index: i}, row)
		if err != nil {
			return nil, fmt.Errorf("collection: seed %s: %w", seedLabel(cfg.name), err)
		}
		records = append(records, record)
	}
	return records, nil
}

func seedLabel(name string) string {
	if name == "" {
		return "unnamed"
	}
	return fmt.Sprintf("%q", name)
}
