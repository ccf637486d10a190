package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/depres/internal/ir"
)

// marshalModels converts the active model list to canonical JSON TEXT.
func marshalModels(models []string) (string, error) {
	if models == nil {
		models = []string{}
	}
	data, err := ir.MarshalCanonical(models)
	if err != nil {
		return "", fmt.Errorf("marshal models: %w", err)
	}
	return string(data), nil
}

// marshalNested converts a loop manager's nested node list to canonical JSON TEXT.
func marshalNested(nested []int) (string, error) {
	arr := make([]any, len(nested))
	for i, n := range nested {
		arr[i] = n
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal nested: %w", err)
	}
	return string(data), nil
}

func unmarshalModels(data string) ([]string, error) {
	models := []string{}
	if data == "" {
		return models, nil
	}
	if err := json.Unmarshal([]byte(data), &models); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", err)
	}
	return models, nil
}

// unmarshalNested returns nil for an empty list, matching how the resolver
// leaves non-managers.
func unmarshalNested(data string) ([]int, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var nested []int
	if err := json.Unmarshal([]byte(data), &nested); err != nil {
		return nil, fmt.Errorf("unmarshal nested: %w", err)
	}
	return nested, nil
}
