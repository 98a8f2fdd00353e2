//go:build !js_eval

package statetree

// NewJSEvaluator returns nil unless the binary is built with -tags js_eval,
// which links goja.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator { return nil }

func jsEvaluatorAvailable() bool { return false }
