package statetree

import "errors"

var (
	// ErrDestroyed is returned by mutators once Destroy has run.
	ErrDestroyed = errors.New("statetree: store destroyed")

	// ErrEmptyNamespace is returned when a namespace name is blank.
	ErrEmptyNamespace = errors.New("statetree: namespace name must not be empty")

	// ErrNoEvaluator is returned when no expression evaluator can be built.
	ErrNoEvaluator = errors.New("statetree: evaluator not configured")

	// ErrInvalidSnapshot is returned when a snapshot is not a map tree.
	ErrInvalidSnapshot = errors.New("statetree: snapshot must be a map[string]any tree")

	// ErrNotMap is returned by Merge and Decode when the target path holds
	// something other than a map.
	ErrNotMap = errors.New("statetree: value at path is not a map")
)

// ErrEmptyExpression is returned when a rule expression is blank.
var ErrEmptyExpression = errors.New("statetree: expression must not be empty")
