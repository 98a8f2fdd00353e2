package snapshot

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec serializes trees.
type Codec interface {
	Name() string
	Marshal(tree map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// JSONCodec encodes trees as JSON. Numbers decode as float64.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(tree map[string]any) ([]byte, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("snapshot: json encode: %w", err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte) (map[string]any, error) {
	tree := map[string]any{}
	if len(data) == 0 {
		return tree, nil
	}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("snapshot: json decode: %w", err)
	}
	return tree, nil
}

// YAMLCodec encodes trees as YAML. Integers decode as int.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Marshal(tree map[string]any) ([]byte, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("snapshot: yaml encode: %w", err)
	}
	return data, nil
}

func (YAMLCodec) Unmarshal(data []byte) (map[string]any, error) {
	tree := map[string]any{}
	if len(data) == 0 {
		return tree, nil
	}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("snapshot: yaml decode: %w", err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}
