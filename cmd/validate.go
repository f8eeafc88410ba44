package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a graph file against the output schema",
		Long: `Check that a file written by "cochange graph" or "cochange clone" matches the
published graph schema. Compressed .lz4 files are read transparently.

Examples:
  cochange validate file_graph.json
  cochange validate repo_graphs.json.lz4`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(deps, args[0])
		},
	}
}

func runValidate(deps *Dependencies, path string) error {
	if deps == nil || deps.Validator == nil {
		return errors.New("dependencies not configured")
	}

	violations, err := deps.Validator(path)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if len(violations) == 0 {
		writeWarningf(stdoutOf(deps), "%s: valid\n", path)
		return nil
	}

	stderr := stderrOf(deps)
	for _, v := range violations {
		writeWarningf(stderr, "%s: %s\n", path, v)
	}
	return fmt.Errorf("validation failed: %d error(s)", len(violations))
}
