package collection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-collection/deep"
	"github.com/goliatone/go-collection/internal/hydrate"
)

var errEmptyExpression = errors.New("collection: expression must not be empty")

// Where returns copies of the records for which expr evaluates to true. It
// does not mutate the store or notify subscribers.
func (s *Store[T]) Where(expr string) ([]T, error) {
	match, finish, err := s.compileMatcher(expr)
	if err != nil {
		return nil, err
	}
	out := []T{}
	var evalErr error
	for _, record := range s.current.items {
		ok, err := match(record)
		if err != nil {
			evalErr = err
			break
		}
		if ok {
			out = append(out, deep.Clone(record))
		}
	}
	finish(s.current.Len(), evalErr)
	if evalErr != nil {
		return nil, evalErr
	}
	return out, nil
}

// DeleteWhere removes the records for which expr evaluates to true. It
// behaves like Delete with a predicate; an evaluation failure aborts before
// anything is removed.
func (s *Store[T]) DeleteWhere(expr string) ([]T, error) {
	match, finish, err := s.compileMatcher(expr)
	if err != nil {
		return nil, err
	}
	records := s.current.Len()
	var evalErr error
	affected, err := s.deleteMatching(func(record T) (bool, error) {
		ok, err := match(record)
		if err != nil {
			evalErr = err
		}
		return ok, err
	})
	finish(records, evalErr)
	return affected, err
}

// compileMatcher compiles expr once and returns a per-record matcher plus a
// callback that logs the evaluation when the caller is done.
func (s *Store[T]) compileMatcher(expr string) (func(T) (bool, error), func(int, error), error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil, errEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, nil, err
	}
	engine := evaluatorEngineName(evaluator)
	collection := RuleContext{Collection: s.cfg.name}.collectionLabel()
	start := s.cfg.clock()

	finish := func(records int, err error) {
		s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
			Engine:     engine,
			Expr:       expr,
			Collection: collection,
			Records:    records,
			Duration:   s.cfg.clock().Sub(start),
			Err:        err,
		})
	}

	rule, err := evaluator.Compile(expr)
	if err != nil {
		err = wrapEvaluationError(engine, expr, collection, err)
		finish(0, err)
		return nil, nil, err
	}

	now := start
	fail := func(record T, err error) error {
		key, ok := keyOf(record, s.uniqueKey)
		return withRecordKey(wrapEvaluationError(engine, expr, collection, err), key, ok)
	}
	match := func(record T) (bool, error) {
		fields, err := hydrate.ToMap(record)
		if err != nil {
			return false, fail(record, err)
		}
		value, err := rule.Evaluate(RuleContext{
			Record:     fields,
			Now:        &now,
			Collection: s.cfg.name,
		}.withDefaults())
		if err != nil {
			return false, fail(record, err)
		}
		result, ok := value.(bool)
		if !ok {
			return false, fail(record, fmt.Errorf("%w: got %T", ErrPredicateNotBool, value))
		}
		return result, nil
	}
	return match, finish, nil
}

func (s *Store[T]) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.cfg.evaluator = evaluator
	return evaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*collection.exprEvaluator":
		return "expr"
	case "*collection.celEvaluator":
		return "cel"
	case "*collection.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
