package commands

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseSetValues turns repeated key=value flags into nested data. Dotted
// keys build nested maps and values are read as YAML scalars, so
// "ids=[1, 2]" yields a list and "active=true" a bool.
func parseSetValues(pairs []string) (map[string]any, error) {
	data := make(map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		if raw == "" {
			value = ""
		}

		if err := setPath(data, strings.Split(key, "."), value); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
	}
	return data, nil
}

func setPath(data map[string]any, path []string, value any) error {
	for i, segment := range path {
		if segment == "" {
			return fmt.Errorf("empty key segment")
		}
		if i == len(path)-1 {
			data[segment] = value
			return nil
		}
		next, ok := data[segment].(map[string]any)
		if !ok {
			if _, exists := data[segment]; exists {
				return fmt.Errorf("%q is already set to a non-map value", strings.Join(path[:i+1], "."))
			}
			next = make(map[string]any)
			data[segment] = next
		}
		data = next
	}
	return nil
}
