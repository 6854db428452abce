package collection

import (
	"time"

	"github.com/goliatone/go-collection/pkg/activity"
)

// Record is the schema-free document shape most stores hold.
type Record = map[string]any

// Config fixes the identity and merge behaviour of a Store at construction.
type Config[T any] struct {
	// UniqueKey names the field whose value identifies a record. Map records
	// use it as a key; struct records match an exported field by json tag or
	// Go name.
	UniqueKey string
	// Value is the initial snapshot. It is trusted as given; uniqueness is not
	// checked.
	Value []T
	// DeepMergeArrays selects how slice fields combine on upsert. The zero
	// value replaces slices.
	DeepMergeArrays MergePolicy
}

// Predicate selects records. It receives a copy of each record.
type Predicate[T any] func(record T) bool

// SubscriberFunc receives every newly published snapshot. A returned error
// stops the notification pass and is reported by the mutating call.
type SubscriberFunc[T any] func(snapshot *Snapshot[T]) error

// RuleContext carries inputs needed when evaluating an expression against a
// single record.
type RuleContext struct {
	Record     any
	Now        *time.Time
	Args       map[string]any
	Metadata   map[string]any
	Collection string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) collectionLabel() string {
	if ctx.Collection != "" {
		return ctx.Collection
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures optional Store collaborators.
type Option func(*storeConfig)

type storeConfig struct {
	name           string
	evaluator      Evaluator
	programCache   ProgramCache
	functions      *FunctionRegistry
	logger         EvaluatorLogger
	mutationLogger MutationLogger
	activityHooks  activity.Hooks
	activityConfig *activity.Config
	actor          activityActor
	clock          func() time.Time
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return cfg
}

// WithName labels the store in logs, evaluator errors and activity events.
func WithName(name string) Option {
	return func(cfg *storeConfig) {
		cfg.name = name
	}
}

// WithEvaluator configures the expression engine used by Where and
// DeleteWhere. The expr engine is used when none is configured.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithClock overrides the time source used for durations and event stamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *storeConfig) {
		cfg.clock = clock
	}
}

func (s *Store[T]) evaluatorLogger() EvaluatorLogger {
	if s.cfg.logger != nil {
		return s.cfg.logger
	}
	return noopEvaluatorLogger{}
}

func (s *Store[T]) mutationLogger() MutationLogger {
	if s.cfg.mutationLogger != nil {
		return s.cfg.mutationLogger
	}
	return noopMutationLogger{}
}
