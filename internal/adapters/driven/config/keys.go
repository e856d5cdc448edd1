package config

import "strings"

// Flatten turns nested tables into dotted keys: {"llm": {"model": "x"}}
// becomes {"llm.model": "x"}.
func Flatten(tables map[string]any) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, tables, "")
	return flat
}

func flattenInto(flat, tables map[string]any, prefix string) {
	for key, value := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(flat, nested, key)
			continue
		}
		flat[key] = value
	}
}

// Nest is the inverse of Flatten. When a key is both a value and the
// prefix of other keys, the value wins and the longer keys are dropped.
func Nest(flat map[string]any) map[string]any {
	tables := make(map[string]any)

	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := tables
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				if _, taken := node[part]; taken {
					node = nil
					break
				}
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		if node == nil {
			continue
		}
		leaf := parts[len(parts)-1]
		if _, isTable := node[leaf].(map[string]any); isTable {
			continue
		}
		node[leaf] = value
	}

	return tables
}
