package statetree

import (
	"errors"
	"fmt"
)

// ErrRuleFailed matches every *EvaluationError under errors.Is.
var ErrRuleFailed = errors.New("statetree: rule failed")

// RuleStage says where a rule failed.
type RuleStage string

const (
	// RuleCompile covers parsing, type checking and program construction.
	RuleCompile RuleStage = "compile"
	// RuleRun covers evaluation against a snapshot.
	RuleRun RuleStage = "run"
)

// EvaluationError describes a failed rule.
//
// Path is the watched path for WatchWhen rules and RuleContext.Path for
// Evaluate; it is empty for whole-tree evaluations. Value and Old carry the
// change a WatchWhen rule was gating and are nil otherwise.
type EvaluationError struct {
	Engine string
	Expr   string
	Stage  RuleStage
	Path   string
	Value  any
	Old    any
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	at := "<root>"
	if e.Path != "" {
		at = e.Path
	}
	expr := "<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("%q", e.Expr)
	}
	stage := e.Stage
	if stage == "" {
		stage = RuleRun
	}
	return fmt.Sprintf("statetree: %s rule %s failed to %s at %s: %v", e.Engine, expr, stage, at, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports true for ErrRuleFailed.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrRuleFailed
}

// ruleError wraps err as an *EvaluationError. An existing one is completed
// in place: fields it already carries win.
func ruleError(stage RuleStage, engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEmptyExpression) {
		return err
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Stage == "" {
			evalErr.Stage = stage
		}
		if evalErr.Path == "" {
			evalErr.Path = path
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Stage:  stage,
		Path:   path,
		Err:    err,
	}
}

// withChange attaches the gated change to a rule failure.
func withChange(err error, value, old any) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		evalErr.Value = value
		evalErr.Old = old
	}
	return err
}
