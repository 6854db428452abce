package collection

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata alongside the originating error.
// Key holds the unique key of the record being evaluated, when there was one.
type EvaluationError struct {
	Engine     string
	Expr       string
	Collection string
	Key        string
	Err        error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key != "" {
		return fmt.Sprintf("collection: %s evaluator %s collection=%s key=%s: %v", e.Engine, describeExpression(e.Expr), e.Collection, e.Key, e.Err)
	}
	return fmt.Sprintf("collection: %s evaluator %s collection=%s: %v", e.Engine, describeExpression(e.Expr), e.Collection, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "collection:") {
		return err
	}
	return fmt.Errorf("collection: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, collection string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Collection == "" {
			evalErr.Collection = collection
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:     engine,
		Expr:       expr,
		Collection: collection,
		Err:        err,
	}
}

// withRecordKey stamps the failing record's key onto an evaluation error.
func withRecordKey(err error, key any, ok bool) error {
	var evalErr *EvaluationError
	if !ok || !errors.As(err, &evalErr) || evalErr.Key != "" {
		return err
	}
	evalErr.Key = fmt.Sprint(key)
	return err
}
