package markpatch

import (
	"context"
	"fmt"
)

// Apply parses the change requests in content and applies each one in
// whole-block mode. It returns a summary of the operations in a map.
func Apply(content string, config Config) (map[string][]string, error) {
	app, err := New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize markpatch app: %w", err)
	}

	_, summary, err := app.ApplyText(context.Background(), content, ApplyOptions{})
	if err != nil {
		return nil, err
	}

	result := map[string][]string{
		"Modified": summary.Modified,
		"Failed":   summary.Failed,
		"Warnings": summary.Warnings,
	}
	return result, nil
}

// Preview returns the unified diff each request in content would produce,
// keyed by target path, without writing anything.
func Preview(content string, config Config) (map[string]string, error) {
	app, err := New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize markpatch app: %w", err)
	}

	results, _, err := app.ApplyText(context.Background(), content, ApplyOptions{DryRun: true})
	if err != nil {
		return nil, err
	}

	diffs := make(map[string]string, len(results))
	for _, r := range results {
		if r.Err != nil {
			return diffs, r.Err
		}
		diffs[r.Session.Path] += r.Diff
	}
	return diffs, nil
}
