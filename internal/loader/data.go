package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlshade/internal/starlark"
	"gopkg.in/yaml.v3"
)

// LoadData reads render data from .yaml, .yml, .json and .star files and
// merges them left to right: later files win, nested mappings are merged.
// predeclared values are visible to Starlark files as globals.
func LoadData(paths []string, predeclared map[string]any, logger *slog.Logger) (map[string]any, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parts := make([]map[string]any, len(paths))
	var tasks []starlark.DataTask
	var taskIdx []int

	for i, path := range paths {
		src, err := os.ReadFile(path) //nolint:gosec // G304: data paths are given on the command line
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml", ".json":
			data, err := decodeYAML(path, src)
			if err != nil {
				return nil, err
			}
			parts[i] = data
		case ".star":
			tasks = append(tasks, starlark.DataTask{Path: path, Src: src})
			taskIdx = append(taskIdx, i)
		default:
			return nil, fmt.Errorf("unsupported data file %s: expected .yaml, .yml, .json or .star", path)
		}
	}

	if len(tasks) > 0 {
		globals, err := starlark.Predeclared(predeclared)
		if err != nil {
			return nil, err
		}
		pool := starlark.NewThreadPool(len(tasks), logger)
		results := starlark.NewParallelExecutor(pool, globals).Execute(tasks)
		for j, res := range results {
			if res.Error != nil {
				return nil, res.Error
			}
			parts[taskIdx[j]] = res.Data
		}
	}

	merged := make(map[string]any)
	for i, part := range parts {
		MergeData(merged, part)
		logger.Debug("data file loaded", slog.String("path", paths[i]), slog.Int("keys", len(part)))
	}
	return merged, nil
}

// decodeYAML decodes a YAML or JSON document whose top level is a mapping.
// An empty document yields empty data.
func decodeYAML(path string, src []byte) (map[string]any, error) {
	var data map[string]any
	if err := yaml.Unmarshal(src, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// MergeData copies src into dst. Mappings present on both sides are merged
// recursively; any other value in src replaces the one in dst.
func MergeData(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				next := make(map[string]any, len(dv)+len(sv))
				MergeData(next, dv)
				MergeData(next, sv)
				dst[k] = next
				continue
			}
		}
		dst[k] = v
	}
}
