package collection

import "time"

// Mutation operations reported to a MutationLogger.
const (
	OpInit   = "init"
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// MutationLogEvent describes one store mutation once it has run to completion.
type MutationLogEvent struct {
	Collection  string
	Op          string
	Items       int
	Affected    int
	Changed     bool
	Version     uint64
	Subscribers int
	Duration    time.Duration
	Err         error
}

// MutationLogger records store mutations.
type MutationLogger interface {
	LogMutation(MutationLogEvent)
}

// MutationLoggerFunc adapts a function to MutationLogger.
type MutationLoggerFunc func(MutationLogEvent)

// LogMutation implements MutationLogger.
func (f MutationLoggerFunc) LogMutation(event MutationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopMutationLogger struct{}

func (noopMutationLogger) LogMutation(MutationLogEvent) {}

// WithMutationLogger attaches a mutation logger to the store.
func WithMutationLogger(logger MutationLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.mutationLogger = noopMutationLogger{}
			return
		}
		cfg.mutationLogger = logger
	}
}
