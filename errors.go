package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrUniqueKeyRequired indicates a Config without a unique key field.
	ErrUniqueKeyRequired = errors.New("collection: unique key must be provided")
	// ErrPredicateNotBool indicates a where expression that did not produce a
	// boolean for some record.
	ErrPredicateNotBool = errors.New("collection: predicate must evaluate to bool")
	// ErrNoEvaluator indicates no expression engine could be resolved.
	ErrNoEvaluator = errors.New("collection: evaluator not configured")
	// ErrEvaluationTimeout indicates a script predicate interrupted after
	// running past its time budget.
	ErrEvaluationTimeout = errors.New("collection: evaluation timed out")
)

// SubscriberError reports the subscriber that failed during a notification
// pass. The snapshot it was receiving had already been committed.
type SubscriberError struct {
	Index   int
	Version uint64
	Err     error
}

func (e *SubscriberError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("collection: subscriber %d failed on version %d: %v", e.Index, e.Version, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
