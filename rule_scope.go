package statetree

import "github.com/goliatone/go-statetree/internal/paths"

// Names bound for every rule regardless of engine. Snapshot keys with the
// same name are shadowed.
const (
	ruleNow      = "now"
	ruleArgs     = "args"
	ruleMetadata = "metadata"
	ruleState    = "state"
	ruleLookup   = "lookup"
	ruleDefined  = "defined"
	ruleCall     = "call"
)

// ruleScope resolves the names a rule can see: the top level keys of the
// snapshot, the whole snapshot as state, and dotted-path accessors over it.
type ruleScope struct {
	ctx      RuleContext
	tree     map[string]any
	registry *FunctionRegistry
}

func newRuleScope(ctx RuleContext, registry *FunctionRegistry) ruleScope {
	ctx = ctx.withDefaults()
	return ruleScope{
		ctx:      ctx,
		tree:     snapshotAsMap(ctx.Snapshot),
		registry: registry,
	}
}

// lookup returns the value at a dotted path inside the snapshot, or nil.
func (s ruleScope) lookup(path string) any {
	v, _ := lookupPath(s.tree, path)
	return v
}

// defined reports whether a dotted path exists in the snapshot.
func (s ruleScope) defined(path string) bool {
	_, ok := lookupPath(s.tree, path)
	return ok
}

// bindings flattens the scope into a variable map. Registry functions are
// bound by name and through call(name, args...).
func (s ruleScope) bindings() map[string]any {
	out := make(map[string]any, len(s.tree)+8)
	for key, value := range s.tree {
		out[key] = value
	}
	out[ruleNow] = s.ctx.timestamp()
	out[ruleArgs] = s.ctx.Args
	out[ruleMetadata] = s.ctx.Metadata
	out[ruleState] = s.tree
	out[ruleLookup] = s.lookup
	out[ruleDefined] = s.defined
	if s.registry != nil {
		registry := s.registry
		out[ruleCall] = func(name string, arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}
		for _, name := range registry.Names() {
			fn := name
			out[fn] = func(arguments ...any) (any, error) {
				return registry.Call(fn, arguments...)
			}
		}
	}
	return out
}

func lookupPath(tree map[string]any, path string) (any, bool) {
	if path == "" {
		return tree, tree != nil
	}
	return walk(tree, paths.Compile(path))
}

func snapshotAsMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}
