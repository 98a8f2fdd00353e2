package statetree

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-statetree/internal/paths"
)

// FieldDescriptor describes a leaf path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Describe returns a descriptor for every leaf in lexical path order. Maps
// nested deeper than Config.KeysDepth are reported as a single leaf.
func (s *Store) Describe() []FieldDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return []FieldDescriptor{}
	}
	return deriveFieldDescriptors(s.tree, "", s.cfg.KeysDepth)
}

type describeFrame struct {
	value  any
	prefix string
	depth  int
}

func deriveFieldDescriptors(root map[string]any, prefix string, maxDepth int) []FieldDescriptor {
	fields := []FieldDescriptor{}
	if root == nil {
		return fields
	}
	seen := map[uintptr]bool{}
	stack := []describeFrame{{value: root, prefix: prefix}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		typed, isMap := frame.value.(map[string]any)
		if !isMap || (len(typed) == 0 && frame.prefix != prefix) || frame.depth >= maxDepth {
			if frame.prefix == prefix {
				continue
			}
			fields = append(fields, FieldDescriptor{Path: frame.prefix, Type: typeName(frame.value)})
			continue
		}
		ptr := reflect.ValueOf(typed).Pointer()
		if seen[ptr] {
			fields = append(fields, FieldDescriptor{Path: frame.prefix, Type: "shared"})
			continue
		}
		seen[ptr] = true
		for key, child := range typed {
			stack = append(stack, describeFrame{
				value:  child,
				prefix: paths.Join(frame.prefix, key),
				depth:  frame.depth + 1,
			})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}

func typeName(value any) string {
	switch typed := value.(type) {
	case nil:
		return "nil"
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return "[]" + elementType
	}
	return fmt.Sprintf("%T", value)
}
